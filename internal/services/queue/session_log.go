package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MaxHistory bounds the reports kept per session
const MaxHistory = 50

// Report summarizes one finished rehearsal
type Report struct {
	RequestID  string    `json:"request_id"`
	Name       string    `json:"name,omitempty"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	Line       int       `json:"line,omitempty"`
	Duration   float64   `json:"duration"`
	Captions   []string  `json:"captions,omitempty"`
	Sounds     []string  `json:"sounds,omitempty"`
	Song       string    `json:"song,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// SessionLog keeps the most recent rehearsal reports for each session
type SessionLog struct {
	client *Client
}

func NewSessionLog(client *Client) *SessionLog {
	return &SessionLog{client: client}
}

func historyKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("rehearsal-history:%s", sessionID.String())
}

// Append records a report, newest first
func (l *SessionLog) Append(ctx context.Context, sessionID uuid.UUID, r Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	key := historyKey(sessionID)

	pipe := l.client.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, MaxHistory-1)
	if _, err := pipe.Exec(ctx); err != nil {
		l.client.logger.Error("Failed to append rehearsal report",
			"error", err,
			"session_id", sessionID.String(),
			"key", key)
		return fmt.Errorf("failed to append report: %w", err)
	}
	return nil
}

// History returns up to limit reports, newest first. A limit of zero or less
// returns all of them.
func (l *SessionLog) History(ctx context.Context, sessionID uuid.UUID, limit int) ([]Report, error) {
	end := int64(limit - 1)
	if limit <= 0 {
		end = -1
	}
	items, err := l.client.rdb.LRange(ctx, historyKey(sessionID), 0, end).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	reports := make([]Report, 0, len(items))
	for _, item := range items {
		var r Report
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			l.client.logger.Warn("Skipping unreadable report", "error", err, "session_id", sessionID.String())
			continue
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// Clear removes a session's history
func (l *SessionLog) Clear(ctx context.Context, sessionID uuid.UUID) error {
	if err := l.client.rdb.Del(ctx, historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
