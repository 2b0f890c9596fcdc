package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
)

const defaultHistoryLimit = 20

// HistoryReader returns a session's rehearsal reports, newest first
type HistoryReader interface {
	History(ctx context.Context, sessionID uuid.UUID, limit int) ([]queue.Report, error)
}

type HistoryResponse struct {
	SessionID uuid.UUID      `json:"session_id"`
	Reports   []queue.Report `json:"reports"`
}

// SessionsHandler serves GET /v1/sessions/{id}/history?limit=N
type SessionsHandler struct {
	history HistoryReader
	logger  *slog.Logger
}

func NewSessionsHandler(history HistoryReader, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{history: history, logger: logger}
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, h.logger, http.StatusBadRequest, "limit must be a positive integer.")
			return
		}
		limit = n
	}

	reports, err := h.history.History(r.Context(), sessionID, limit)
	if err != nil {
		h.logger.Error("Failed to read history", "error", err, "session_id", sessionID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read session history.")
		return
	}
	if reports == nil {
		reports = []queue.Report{}
	}
	writeJSON(w, h.logger, http.StatusOK, HistoryResponse{SessionID: sessionID, Reports: reports})
}
