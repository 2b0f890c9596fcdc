package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type staticParsers struct{ parser *script.Parser }

func (s staticParsers) Parser(ctx context.Context) (*script.Parser, error) {
	return s.parser, nil
}

var testParsers = staticParsers{&script.Parser{Messages: script.Messages{1: "Hello there"}}}

var sceneLines = []string{
	"prop bob 183:0 x:10:90 time:0:5",
	"caption 1 time:0:5",
	"sound boom time:1",
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func newScriptsMux(store storage.Storage) *http.ServeMux {
	h := NewScriptsHandler(store, testParsers, testLogger())
	mux := http.NewServeMux()
	mux.Handle("/v1/scripts", h)
	mux.Handle("/v1/scripts/{name}", h)
	return mux
}

func TestHealthHandler(t *testing.T) {
	store := storage.NewMockStorage()
	h := NewHealthHandler(store, testLogger())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "cutscene-engine", resp.Service)

	store.SetPingError(errors.New("connection refused"))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unhealthy", resp.Components["storage"])
}

func TestScriptsHandler_PutGetListDelete(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddScriptFile("intro", []string{"prop a :img time:0:1"})
	mux := newScriptsMux(store)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/v1/scripts/scene",
		jsonBody(t, ScriptRequest{Lines: sceneLines})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var v ValidationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.True(t, v.Valid)
	require.NotNil(t, v.Summary)
	assert.Equal(t, 5.0, v.Duration)
	assert.Equal(t, []string{"bob"}, v.Entities)
	assert.Equal(t, []string{"boom"}, v.Sounds)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/scripts/scene", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got ScriptResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, sceneLines, got.Lines)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/scripts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var list ScriptListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, []string{"intro", "scene"}, list.Scripts)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/scripts/scene", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/v1/scripts/scene", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// shipped file still readable
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/scripts/intro", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestScriptsHandler_PutPlainText(t *testing.T) {
	store := storage.NewMockStorage()
	mux := newScriptsMux(store)

	req := httptest.NewRequest(http.MethodPut, "/v1/scripts/plain",
		strings.NewReader(strings.Join(sceneLines, "\r\n")+"\r\n"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	lines, err := store.LoadScript(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, sceneLines, lines)
}

func TestScriptsHandler_PutRejectsBrokenScript(t *testing.T) {
	store := storage.NewMockStorage()
	mux := newScriptsMux(store)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/v1/scripts/broken",
		jsonBody(t, ScriptRequest{Lines: []string{"prop a :img", "dance a"}})))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var v ValidationResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.False(t, v.Valid)
	assert.Nil(t, v.Summary)
	assert.Equal(t, 2, v.Line)
	assert.Equal(t, "Unknown command 'dance'", v.Error)

	_, err := store.LoadScript(context.Background(), "broken")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestScriptsHandler_Errors(t *testing.T) {
	mux := newScriptsMux(storage.NewMockStorage())

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"missing script", http.MethodGet, "/v1/scripts/nope", "", http.StatusNotFound},
		{"bad name", http.MethodGet, "/v1/scripts/.hidden", "", http.StatusBadRequest},
		{"bad json", http.MethodPut, "/v1/scripts/x", "{", http.StatusBadRequest},
		{"no lines", http.MethodPut, "/v1/scripts/x", `{"lines":[]}`, http.StatusBadRequest},
		{"line break inside a line", http.MethodPut, "/v1/scripts/x", `{"lines":["prop a :img time:0:1","caption 1\ndance"]}`, http.StatusBadRequest},
		{"post on item", http.MethodPost, "/v1/scripts/x", "", http.StatusMethodNotAllowed},
		{"post on list", http.MethodPost, "/v1/scripts", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestValidateHandler(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddScriptFile("intro", sceneLines)
	h := NewValidateHandler(store, testParsers, testLogger())

	tests := []struct {
		name      string
		body      any
		wantCode  int
		wantValid bool
		wantLine  int
	}{
		{"inline ok", ValidateRequest{Lines: sceneLines}, http.StatusOK, true, 0},
		{"stored ok", ValidateRequest{Script: "intro"}, http.StatusOK, true, 0},
		{"unknown message", ValidateRequest{Lines: []string{"caption 9 time:0:1"}}, http.StatusOK, false, 1},
		{"missing stored", ValidateRequest{Script: "nope"}, http.StatusNotFound, false, 0},
		{"neither", ValidateRequest{}, http.StatusBadRequest, false, 0},
		{"both", ValidateRequest{Lines: sceneLines, Script: "intro"}, http.StatusBadRequest, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/validate", jsonBody(t, tt.body)))
			require.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}
			var v ValidationResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
			assert.Equal(t, tt.wantValid, v.Valid)
			assert.Equal(t, tt.wantLine, v.Line)
		})
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/validate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
