package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/cutscene-engine/pkg/script"
	"github.com/jwebster45206/cutscene-engine/pkg/sequencer"
	"github.com/jwebster45206/cutscene-engine/pkg/storage"
)

const scriptPrefix = "script:"

// RedisStorage implements the Storage interface using Redis for uploaded
// scripts and the filesystem for shipped resources
type RedisStorage struct {
	client *redis.Client
	logger *slog.Logger
	files  *FileStore
}

// Ensure RedisStorage implements Storage interface
var _ storage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL may be a
// redis:// URL or a bare host:port.
func NewRedisStorage(redisURL string, dataDir string, logger *slog.Logger) *RedisStorage {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	rdb := redis.NewClient(opt)
	return &RedisStorage{
		client: rdb,
		logger: logger,
		files:  NewFileStore(dataDir, logger),
	}
}

// Client exposes the underlying client for the queue and event services
func (r *RedisStorage) Client() *redis.Client {
	return r.client
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Uploaded script operations (Redis-backed)

func (r *RedisStorage) SaveScript(ctx context.Context, name string, lines []string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	if err := storage.ValidateLines(lines); err != nil {
		return err
	}
	if err := r.client.Set(ctx, scriptPrefix+name, strings.Join(lines, "\n"), 0).Err(); err != nil {
		r.logger.Error("Failed to save script", "script", name, "error", err)
		return fmt.Errorf("failed to save script: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadScript(ctx context.Context, name string) ([]string, error) {
	data, err := r.client.Get(ctx, scriptPrefix+name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("script %s: %w", name, storage.ErrNotFound)
		}
		r.logger.Error("Failed to load script", "script", name, "error", err)
		return nil, fmt.Errorf("failed to load script: %w", err)
	}
	return strings.Split(data, "\n"), nil
}

func (r *RedisStorage) DeleteScript(ctx context.Context, name string) error {
	n, err := r.client.Del(ctx, scriptPrefix+name).Result()
	if err != nil {
		r.logger.Error("Failed to delete script", "script", name, "error", err)
		return fmt.Errorf("failed to delete script: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("script %s: %w", name, storage.ErrNotFound)
	}
	return nil
}

func (r *RedisStorage) GetScript(ctx context.Context, name string) ([]string, error) {
	lines, err := r.LoadScript(ctx, name)
	if err == nil {
		return lines, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	return r.files.GetScriptFile(ctx, name)
}

func (r *RedisStorage) ListScripts(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	iter := r.client.Scan(ctx, 0, scriptPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		name := strings.TrimPrefix(iter.Val(), scriptPrefix)
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}

	files, err := r.files.ListScriptFiles(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range files {
		if !seen[name] {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Filesystem-backed operations

func (r *RedisStorage) GetScriptFile(ctx context.Context, name string) ([]string, error) {
	return r.files.GetScriptFile(ctx, name)
}

func (r *RedisStorage) GetMessages(ctx context.Context) (script.Messages, error) {
	return r.files.GetMessages(ctx)
}

func (r *RedisStorage) GetPlaylist(ctx context.Context, name string) (*sequencer.Playlist, error) {
	return r.files.GetPlaylist(ctx, name)
}
