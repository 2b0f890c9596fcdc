package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/cutscene-engine/internal/metrics"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

// ValidateRequest carries script lines, or names a stored script
type ValidateRequest struct {
	Lines  []string `json:"lines,omitempty"`
	Script string   `json:"script,omitempty"`
}

// ValidateHandler compiles a script without playing it.
// POST /v1/validate
type ValidateHandler struct {
	storage storage.Storage
	parsers ParserSource
	logger  *slog.Logger
}

func NewValidateHandler(storage storage.Storage, parsers ParserSource, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{
		storage: storage,
		parsers: parsers,
		logger:  logger,
	}
}

func (h *ValidateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
		return
	}
	if (len(req.Lines) == 0) == (req.Script == "") {
		writeError(w, h.logger, http.StatusBadRequest, "Provide exactly one of lines or script.")
		return
	}

	lines, source := req.Lines, "inline"
	if req.Script != "" {
		var err error
		source = "stored"
		lines, err = h.storage.GetScript(r.Context(), req.Script)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, h.logger, http.StatusNotFound, "Script not found.")
				return
			}
			h.logger.Error("Failed to load script", "error", err, "script", req.Script)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load script.")
			return
		}
	}

	parser, err := h.parsers.Parser(r.Context())
	if err != nil {
		h.logger.Error("Failed to load parser resources", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load script resources.")
		return
	}
	c, err := parser.BuildClip(lines)
	metrics.ObserveCompile(source, len(lines), err == nil)
	if err != nil {
		h.logger.Debug("Script failed validation", "error", err)
	}
	writeJSON(w, h.logger, http.StatusOK, validation(c, err))
}
