package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationResponse mirrors the API's script upload result
type ValidationResponse struct {
	Valid    bool    `json:"valid"`
	Duration float64 `json:"duration"`
	Line     int     `json:"line,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// RehearsalResponse is the async rehearsal response
type RehearsalResponse struct {
	RequestID string    `json:"request_id"`
	SessionID uuid.UUID `json:"session_id"`
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type      string         `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// apiError turns a non-2xx response into an error
func apiError(resp *http.Response, body []byte, action string) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}
	return fmt.Errorf("failed to %s: %s", action, errorResp.Error)
}

// uploadScript stores lines under name. A script that does not compile is
// reported with its line.
func uploadScript(client *http.Client, baseURL, name string, lines []string) (*ValidationResponse, error) {
	jsonData, err := json.Marshal(map[string]any{"lines": lines})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPut, baseURL+"/v1/scripts/"+name, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnprocessableEntity:
		var v ValidationResponse
		if err := json.Unmarshal(body, &v); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return &v, nil
	default:
		return nil, apiError(resp, body, "upload script")
	}
}

// startRehearsal queues a rehearsal of a stored script or playlist
func startRehearsal(client *http.Client, baseURL, kind, name string, sessionID uuid.UUID) (*RehearsalResponse, error) {
	jsonData, err := json.Marshal(map[string]any{
		kind:         name,
		"session_id": sessionID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/rehearsals", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		return nil, apiError(resp, body, "start rehearsal")
	}

	var r RehearsalResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &r, nil
}

// listenToSSE connects to the session's event stream and forwards events
// until ctx ends or the stream closes
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/session/%s", baseURL, sessionID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var current SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if current.Type != "" {
				select {
				case eventChan <- current:
				case <-ctx.Done():
					return ctx.Err()
				}
				current = SSEEvent{}
			}
			continue
		}

		if v, ok := strings.CutPrefix(line, "event: "); ok {
			current.Type = v
		} else if v, ok := strings.CutPrefix(line, "data: "); ok {
			var ev SSEEvent
			if err := json.Unmarshal([]byte(v), &ev); err == nil {
				current.RequestID = ev.RequestID
				current.Data = ev.Data
				if current.Data == nil {
					// the connected event carries bare fields
					_ = json.Unmarshal([]byte(v), &current.Data)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return ctx.Err()
}

// describeEvent renders one rehearsal event as a log line
func describeEvent(ev SSEEvent) string {
	num := func(key string) float64 {
		v, _ := ev.Data[key].(float64)
		return v
	}
	str := func(key string) string {
		v, _ := ev.Data[key].(string)
		return v
	}

	switch ev.Type {
	case "connected":
		return "connected to session " + str("session_id")
	case "rehearsal.queued":
		return fmt.Sprintf("queued %s rehearsal", str("type"))
	case "rehearsal.started":
		return fmt.Sprintf("rehearsal started, %d clip(s)", int(num("clips")))
	case "clip.started":
		return fmt.Sprintf("clip %d %q (%.2fs)", int(num("index"))+1, str("name"), num("duration"))
	case "caption.shown":
		return fmt.Sprintf("%6.2fs caption %q for %.2fs", num("at"), str("text"), num("hold"))
	case "sound.played":
		return fmt.Sprintf("%6.2fs sound %s", num("at"), str("name"))
	case "rehearsal.completed":
		result, _ := ev.Data["result"].(map[string]any)
		d, _ := result["duration"].(float64)
		return fmt.Sprintf("completed, %.2fs of playback", d)
	case "rehearsal.failed":
		if line := int(num("line")); line > 0 {
			return fmt.Sprintf("failed at line %d: %s", line, str("error"))
		}
		return "failed: " + str("error")
	default:
		return ev.Type
	}
}
