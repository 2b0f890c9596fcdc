package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/cutscene-engine/internal/metrics"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

type ScriptListResponse struct {
	Scripts []string `json:"scripts"`
}

type ScriptResponse struct {
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

type ScriptRequest struct {
	Lines []string `json:"lines"`
}

// ScriptsHandler serves /v1/scripts and /v1/scripts/{name}. Uploads are
// compiled first and rejected with the failing line if they do not build.
type ScriptsHandler struct {
	storage storage.Storage
	parsers ParserSource
	logger  *slog.Logger
}

func NewScriptsHandler(storage storage.Storage, parsers ParserSource, logger *slog.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		storage: storage,
		parsers: parsers,
		logger:  logger,
	}
}

func (h *ScriptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		if r.Method != http.MethodGet {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
			return
		}
		h.handleList(w, r)
		return
	}

	if err := storage.ValidateName(name); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid script name.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, name)
	case http.MethodPut:
		h.handlePut(w, r, name)
	case http.MethodDelete:
		h.handleDelete(w, r, name)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (h *ScriptsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := h.storage.ListScripts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scripts", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scripts.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ScriptListResponse{Scripts: names})
}

func (h *ScriptsHandler) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	lines, err := h.storage.GetScript(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Script not found.")
			return
		}
		h.logger.Error("Failed to get script", "error", err, "script", name)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve script.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, ScriptResponse{Name: name, Lines: lines})
}

// handlePut accepts JSON {"lines": [...]} or a text/plain script body
func (h *ScriptsHandler) handlePut(w http.ResponseWriter, r *http.Request, name string) {
	var lines []string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Failed to read script body.")
			return
		}
		lines = strings.Split(strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), "\n")
	} else {
		var req ScriptRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body.")
			return
		}
		lines = req.Lines
	}
	if len(lines) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "Script has no lines.")
		return
	}
	if err := storage.ValidateLines(lines); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid script: "+err.Error()+".")
		return
	}

	parser, err := h.parsers.Parser(r.Context())
	if err != nil {
		h.logger.Error("Failed to load parser resources", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load script resources.")
		return
	}
	c, err := parser.BuildClip(lines)
	metrics.ObserveCompile("upload", len(lines), err == nil)
	if err != nil {
		writeJSON(w, h.logger, http.StatusUnprocessableEntity, validation(nil, err))
		return
	}

	if err := h.storage.SaveScript(r.Context(), name, lines); err != nil {
		h.logger.Error("Failed to save script", "error", err, "script", name)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save script.")
		return
	}
	h.logger.Info("Script saved", "script", name, "lines", len(lines))
	writeJSON(w, h.logger, http.StatusOK, validation(c, nil))
}

func (h *ScriptsHandler) handleDelete(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.storage.DeleteScript(r.Context(), name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Script not found.")
			return
		}
		h.logger.Error("Failed to delete script", "error", err, "script", name)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete script.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
