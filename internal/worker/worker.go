package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/cutscene-engine/internal/metrics"
	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/cutscene-engine/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	lockTTL       = 2 * time.Minute
)

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// Worker processes rehearsal requests from the queue
type Worker struct {
	id          string
	queue       *queue.RehearsalQueue
	processor   *RehearsalProcessor
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(q *queue.RehearsalQueue, processor *RehearsalProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       q,
		processor:   processor,
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	// Block waiting for next request (timeout so shutdown is noticed)
	req, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		if w.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if depth, err := w.queue.Depth(w.ctx); err == nil {
		metrics.SetQueueDepth(depth)
	}

	if req == nil {
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"session_id", req.SessionID.String(),
	)

	// One rehearsal per session at a time
	locked, err := w.acquireSessionLock(req.SessionID)
	if err != nil {
		return fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !locked {
		w.log.Info("Session busy, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"session_id", req.SessionID.String(),
		)
		if err := w.queue.Enqueue(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseSessionLock(req.SessionID)
	return w.processRequest(req)
}

func lockKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-lock:%s", sessionID.String())
}

// acquireSessionLock returns false if another worker holds the session
func (w *Worker) acquireSessionLock(sessionID uuid.UUID) (bool, error) {
	return w.redisClient.SetNX(w.ctx, lockKey(sessionID), w.id, lockTTL).Result()
}

// releaseSessionLock deletes the lock only if this worker owns it
func (w *Worker) releaseSessionLock(sessionID uuid.UUID) {
	if err := releaseScript.Run(w.ctx, w.redisClient, []string{lockKey(sessionID)}, w.id).Err(); err != nil {
		w.log.Error("Failed to release session lock", "error", err, "session_id", sessionID.String())
	}
}

func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()
	report, err := w.processor.Process(w.ctx, req)
	if err != nil {
		w.log.Warn("Rehearsal failed",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"line", report.Line,
			"error", err,
		)
		// Script errors are reported to the session, not retried
		return nil
	}

	w.log.Info("Rehearsal processed successfully",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"clip_seconds", report.Duration,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
