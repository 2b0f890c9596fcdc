package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	// PollInterval is how often to check session history for a report
	PollInterval = 500 * time.Millisecond
	// RehearsalTimeout is max time to wait for the worker's report
	RehearsalTimeout = 60 * time.Second
)

// UploadResult is the API's answer to a script upload
type UploadResult struct {
	Valid    bool     `json:"valid"`
	Duration float64  `json:"duration"`
	Entities []string `json:"entities"`
	Line     int      `json:"line"`
	Error    string   `json:"error"`
}

// Report mirrors one entry of a session's rehearsal history
type Report struct {
	RequestID string   `json:"request_id"`
	Name      string   `json:"name"`
	OK        bool     `json:"ok"`
	Error     string   `json:"error"`
	Line      int      `json:"line"`
	Duration  float64  `json:"duration"`
	Captions  []string `json:"captions"`
	Sounds    []string `json:"sounds"`
	Song      string   `json:"song"`
}

// PutScript uploads lines under name
func PutScript(ctx context.Context, client *http.Client, baseURL, name string, lines []string) (*UploadResult, error) {
	body, err := json.Marshal(map[string]any{"lines": lines})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, baseURL+"/v1/scripts/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to upload script: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnprocessableEntity {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("upload returned %d: %s", resp.StatusCode, string(data))
	}
	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	return &result, nil
}

// PostRehearsal queues a rehearsal and returns the request_id
func PostRehearsal(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, kind, name string) (string, error) {
	body, err := json.Marshal(map[string]any{kind: name, "session_id": sessionID.String()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal rehearsal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/rehearsals", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create rehearsal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send rehearsal request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("rehearsal endpoint returned %d (expected 202): %s", resp.StatusCode, string(data))
	}
	var out struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse rehearsal response: %w", err)
	}
	return out.RequestID, nil
}

// GetHistory returns a session's reports, newest first
func GetHistory(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) ([]Report, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s/history", baseURL, sessionID.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history endpoint returned %d: %s", resp.StatusCode, string(data))
	}
	var out struct {
		Reports []Report `json:"reports"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return out.Reports, nil
}

// WaitForReport polls session history until the worker reports on requestID
func WaitForReport(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, requestID string) (*Report, error) {
	ctx, cancel := context.WithTimeout(ctx, RehearsalTimeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		reports, err := GetHistory(ctx, client, baseURL, sessionID)
		if err != nil {
			return nil, err
		}
		for _, r := range reports {
			if r.RequestID == requestID {
				return &r, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timeout waiting for rehearsal %s", requestID)
		case <-ticker.C:
		}
	}
}
