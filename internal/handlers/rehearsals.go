package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/cutscene-engine/pkg/queue"
)

// Enqueuer accepts rehearsal requests for the worker
type Enqueuer interface {
	Enqueue(ctx context.Context, req *queue.Request) error
}

// QueuedPublisher announces accepted requests on the session channel
type QueuedPublisher interface {
	PublishRehearsalQueued(ctx context.Context, sessionID uuid.UUID, requestID string, kind string) error
}

// RehearsalRequest names exactly one of a stored script, a playlist or
// inline lines. SessionID is generated when omitted.
type RehearsalRequest struct {
	Script    string    `json:"script,omitempty"`
	Playlist  string    `json:"playlist,omitempty"`
	Lines     []string  `json:"lines,omitempty"`
	SessionID uuid.UUID `json:"session_id,omitempty"`
}

type RehearsalResponse struct {
	RequestID string    `json:"request_id"`
	SessionID uuid.UUID `json:"session_id"`
}

// RehearsalsHandler queues rehearsals. Results arrive on the session's
// event stream and history.
// POST /v1/rehearsals
type RehearsalsHandler struct {
	queue  Enqueuer
	events QueuedPublisher
	logger *slog.Logger
}

func NewRehearsalsHandler(q Enqueuer, events QueuedPublisher, logger *slog.Logger) *RehearsalsHandler {
	return &RehearsalsHandler{
		queue:  q,
		events: events,
		logger: logger,
	}
}

func (h *RehearsalsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var body RehearsalRequest
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
		return
	}

	req := &queue.Request{
		RequestID:  uuid.New().String(),
		SessionID:  body.SessionID,
		EnqueuedAt: time.Now(),
	}
	set := 0
	if body.Script != "" {
		req.Type, req.Name = queue.RequestTypeScript, body.Script
		set++
	}
	if body.Playlist != "" {
		req.Type, req.Name = queue.RequestTypePlaylist, body.Playlist
		set++
	}
	if len(body.Lines) > 0 {
		req.Type, req.Lines = queue.RequestTypeInline, body.Lines
		set++
	}
	if set != 1 {
		writeError(w, h.logger, http.StatusBadRequest, "Provide exactly one of script, playlist or lines.")
		return
	}
	if req.SessionID == uuid.Nil {
		req.SessionID = uuid.New()
	}

	if err := h.queue.Enqueue(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue rehearsal", "error", err, "request_id", req.RequestID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to queue rehearsal.")
		return
	}
	if h.events != nil {
		if err := h.events.PublishRehearsalQueued(r.Context(), req.SessionID, req.RequestID, string(req.Type)); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "request_id", req.RequestID)
		}
	}

	h.logger.Info("Rehearsal queued",
		"request_id", req.RequestID,
		"session_id", req.SessionID.String(),
		"type", req.Type)
	writeJSON(w, h.logger, http.StatusAccepted, RehearsalResponse{
		RequestID: req.RequestID,
		SessionID: req.SessionID,
	})
}
