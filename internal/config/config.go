package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL string
	DataDir  string
	WorkerID string

	// TickRate is the number of scheduler ticks per second
	TickRate        int
	MaxTaskDuration time.Duration
	AudioSampleRate int

	// Write requests allowed per second through the API
	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		DataDir:     getEnv("DATA_DIR", "./data"),
		WorkerID:    getEnv("WORKER_ID", defaultWorkerID()),
	}

	if !strings.Contains(cfg.RedisURL, "://") {
		cfg.RedisURL = "redis://" + cfg.RedisURL
	}

	var err error
	if cfg.TickRate, err = strconv.Atoi(getEnv("TICK_RATE", "30")); err != nil || cfg.TickRate <= 0 {
		return nil, fmt.Errorf("invalid TICK_RATE %q", os.Getenv("TICK_RATE"))
	}
	if cfg.MaxTaskDuration, err = time.ParseDuration(getEnv("MAX_TASK_DURATION", "10m")); err != nil || cfg.MaxTaskDuration <= 0 {
		return nil, fmt.Errorf("invalid MAX_TASK_DURATION %q", os.Getenv("MAX_TASK_DURATION"))
	}
	if cfg.AudioSampleRate, err = strconv.Atoi(getEnv("AUDIO_SAMPLE_RATE", "44100")); err != nil || cfg.AudioSampleRate <= 0 {
		return nil, fmt.Errorf("invalid AUDIO_SAMPLE_RATE %q", os.Getenv("AUDIO_SAMPLE_RATE"))
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64); err != nil || cfg.RateLimitRPS <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q", os.Getenv("RATE_LIMIT_RPS"))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10")); err != nil || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST %q", os.Getenv("RATE_LIMIT_BURST"))
	}
	return cfg, nil
}

// TickInterval is the wall time between scheduler ticks
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		return "worker"
	}
	return host
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
