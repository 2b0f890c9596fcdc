package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies what a rehearsal request plays
type RequestType string

const (
	// RequestTypeScript rehearses a stored script by name
	RequestTypeScript RequestType = "script"

	// RequestTypeInline rehearses script lines carried in the request
	RequestTypeInline RequestType = "inline"

	// RequestTypePlaylist rehearses every clip of a stored playlist in order
	RequestTypePlaylist RequestType = "playlist"
)

// Request is one rehearsal waiting in the queue
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	SessionID uuid.UUID   `json:"session_id"`

	// Script or playlist name
	Name string `json:"name,omitempty"`

	// Inline script lines
	Lines []string `json:"lines,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks the request carries what its type needs
func (r *Request) Validate() error {
	switch r.Type {
	case RequestTypeScript, RequestTypePlaylist:
		if r.Name == "" {
			return fmt.Errorf("%s request requires a name", r.Type)
		}
	case RequestTypeInline:
		if len(r.Lines) == 0 {
			return fmt.Errorf("inline request requires lines")
		}
	default:
		return fmt.Errorf("unknown request type %q", r.Type)
	}
	return nil
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		SessionID string `json:"session_id"`
		*Alias
	}{
		SessionID: r.SessionID.String(),
		Alias:     (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		SessionID string `json:"session_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	sessionID, err := uuid.Parse(aux.SessionID)
	if err != nil {
		return err
	}

	r.SessionID = sessionID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
