package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/cutscene-engine/pkg/clip"
	"github.com/jwebster45206/cutscene-engine/pkg/script"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

// ParserSource builds the parser scripts are compiled with
type ParserSource interface {
	Parser(ctx context.Context) (*script.Parser, error)
}

// ValidationResponse reports whether a script compiles. On success it
// carries the clip summary; on failure the line and message.
type ValidationResponse struct {
	Valid bool `json:"valid"`
	*clip.Summary
	Line  int    `json:"line,omitempty"`
	Error string `json:"error,omitempty"`
}

func validation(c *clip.Clip, err error) ValidationResponse {
	if err != nil {
		resp := ValidationResponse{Error: err.Error()}
		var se *script.ScriptError
		if errors.As(err, &se) {
			resp.Line = se.Line
			resp.Error = se.Msg
		}
		return resp
	}
	summary := c.Summarize()
	return ValidationResponse{Valid: true, Summary: &summary}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", "error", err, "status", status)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
