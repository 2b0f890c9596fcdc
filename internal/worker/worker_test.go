package worker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/internal/services/events"
	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/cutscene-engine/pkg/queue"
	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

type harness struct {
	mr      *miniredis.Miniredis
	worker  *Worker
	queue   *queue.RehearsalQueue
	history *queue.SessionLog
}

func setupWorker(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := testLogger()

	client, err := queue.NewClient(context.Background(), "redis://"+mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	q := queue.NewRehearsalQueue(client)
	history := queue.NewSessionLog(client)
	processor := NewRehearsalProcessor(
		storage.NewMockStorage(),
		staticParsers{&script.Parser{}},
		events.NewBroadcaster(rdb, logger),
		history,
		logger,
		100*time.Millisecond,
		time.Minute,
	)
	w := New(q, processor, rdb, logger, "test-worker")
	t.Cleanup(w.Stop)
	return &harness{mr: mr, worker: w, queue: q, history: history}
}

func TestWorkerProcessesQueuedRehearsal(t *testing.T) {
	h := setupWorker(t)
	ctx := context.Background()
	session := uuid.New()

	req := &queuePkg.Request{
		RequestID:  "req-1",
		Type:       queuePkg.RequestTypeInline,
		SessionID:  session,
		Lines:      []string{"prop bob 183:0 x:10:90 time:0:2", "caption 1 time:0:2"},
		EnqueuedAt: time.Now(),
	}
	require.NoError(t, h.queue.Enqueue(ctx, req))
	require.NoError(t, h.worker.processNextRequest())

	reports, err := h.history.History(ctx, session, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].OK)
	assert.Equal(t, 2.0, reports[0].Duration)
	assert.Equal(t, []string{"1"}, reports[0].Captions)

	assert.False(t, h.mr.Exists(lockKey(session)))
}

func TestWorkerReportsScriptErrors(t *testing.T) {
	h := setupWorker(t)
	ctx := context.Background()
	session := uuid.New()

	req := &queuePkg.Request{RequestID: "bad", Type: queuePkg.RequestTypeInline, SessionID: session, Lines: []string{"wiggle bob"}}
	require.NoError(t, h.queue.Enqueue(ctx, req))

	// a script error is reported, not returned as a worker failure
	require.NoError(t, h.worker.processNextRequest())

	reports, err := h.history.History(ctx, session, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.False(t, reports[0].OK)
	assert.Equal(t, 1, reports[0].Line)
}

func TestWorkerRequeuesBusySession(t *testing.T) {
	h := setupWorker(t)
	ctx := context.Background()
	session := uuid.New()

	require.NoError(t, h.mr.Set(lockKey(session), "other-worker"))

	req := &queuePkg.Request{RequestID: "req-2", Type: queuePkg.RequestTypeInline, SessionID: session, Lines: []string{"music theme"}}
	require.NoError(t, h.queue.Enqueue(ctx, req))
	require.NoError(t, h.worker.processNextRequest())

	depth, err := h.queue.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	// the other worker's lock is left alone
	got, err := h.mr.Get(lockKey(session))
	require.NoError(t, err)
	assert.Equal(t, "other-worker", got)
}

func TestWorkerLockRelease(t *testing.T) {
	h := setupWorker(t)
	session := uuid.New()

	ok, err := h.worker.acquireSessionLock(session)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.worker.acquireSessionLock(session)
	require.NoError(t, err)
	assert.False(t, ok)

	h.worker.releaseSessionLock(session)
	assert.False(t, h.mr.Exists(lockKey(session)))
}
