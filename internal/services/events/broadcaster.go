package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeRehearsalQueued    EventType = "rehearsal.queued"
	EventTypeRehearsalStarted   EventType = "rehearsal.started"
	EventTypeClipStarted        EventType = "clip.started"
	EventTypeCaptionShown       EventType = "caption.shown"
	EventTypeSoundPlayed        EventType = "sound.played"
	EventTypeRehearsalCompleted EventType = "rehearsal.completed"
	EventTypeRehearsalFailed    EventType = "rehearsal.failed"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType      `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Channel is the pub/sub channel carrying a session's events
func Channel(sessionID uuid.UUID) string {
	return fmt.Sprintf("session-events:%s", sessionID.String())
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Subscribe opens a subscription to a session's channel
func (b *Broadcaster) Subscribe(ctx context.Context, sessionID uuid.UUID) *redis.PubSub {
	return b.redisClient.Subscribe(ctx, Channel(sessionID))
}

func (b *Broadcaster) PublishRehearsalQueued(ctx context.Context, sessionID uuid.UUID, requestID string, kind string) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeRehearsalQueued,
		RequestID: requestID,
		Data: map[string]any{
			"status": "queued",
			"type":   kind,
		},
	})
}

func (b *Broadcaster) PublishRehearsalStarted(ctx context.Context, sessionID uuid.UUID, requestID string, clips int) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeRehearsalStarted,
		RequestID: requestID,
		Data: map[string]any{
			"status": "playing",
			"clips":  clips,
		},
	})
}

// PublishClipStarted announces the next clip of a rehearsal
func (b *Broadcaster) PublishClipStarted(ctx context.Context, sessionID uuid.UUID, requestID string, name string, index int, duration float64) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeClipStarted,
		RequestID: requestID,
		Data: map[string]any{
			"name":     name,
			"index":    index,
			"duration": duration,
		},
	})
}

// PublishCaptionShown reports a caption at its clip time in seconds
func (b *Broadcaster) PublishCaptionShown(ctx context.Context, sessionID uuid.UUID, requestID string, at float64, text string, hold float64) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeCaptionShown,
		RequestID: requestID,
		Data: map[string]any{
			"at":   at,
			"text": text,
			"hold": hold,
		},
	})
}

func (b *Broadcaster) PublishSoundPlayed(ctx context.Context, sessionID uuid.UUID, requestID string, at float64, name string) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeSoundPlayed,
		RequestID: requestID,
		Data: map[string]any{
			"at":   at,
			"name": name,
		},
	})
}

func (b *Broadcaster) PublishRehearsalCompleted(ctx context.Context, sessionID uuid.UUID, requestID string, result map[string]any) error {
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeRehearsalCompleted,
		RequestID: requestID,
		Data: map[string]any{
			"status": "completed",
			"result": result,
		},
	})
}

// PublishRehearsalFailed reports a failure. line is the script line for
// compile errors, or zero.
func (b *Broadcaster) PublishRehearsalFailed(ctx context.Context, sessionID uuid.UUID, requestID string, errorMsg string, line int) error {
	data := map[string]any{
		"status": "failed",
		"error":  errorMsg,
	}
	if line > 0 {
		data["line"] = line
	}
	return b.publish(ctx, sessionID, Event{
		Type:      EventTypeRehearsalFailed,
		RequestID: requestID,
		Data:      data,
	})
}

func (b *Broadcaster) publish(ctx context.Context, sessionID uuid.UUID, event Event) error {
	channel := Channel(sessionID)
	event.SessionID = sessionID.String()

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
		"request_id", event.RequestID,
	)

	return nil
}
