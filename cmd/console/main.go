package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jwebster45206/cutscene-engine/internal/config"
	"github.com/jwebster45206/cutscene-engine/internal/logger"
	"github.com/jwebster45206/cutscene-engine/internal/services/audio"
	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/internal/watch"
	"github.com/jwebster45206/cutscene-engine/pkg/playback"
)

type ConsoleConfig struct {
	APIBaseURL   string
	Timeout      time.Duration
	TickInterval time.Duration
	Source       string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	remote := flag.Bool("remote", false, "rehearse on the worker through the API instead of playing locally")
	apiURL := flag.String("api", getEnv("API_BASE_URL", "http://localhost:8080"), "API base URL for -remote")
	mute := flag.Bool("mute", false, "play without audio")
	watchFile := flag.Bool("watch", false, "reload and restart when the script file changes")
	logFile := flag.String("log", "", "write logs to this file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: console [flags] <script.cut|playlist.yaml|script name>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	var logOut io.Writer = io.Discard
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			_ = f.Close()
		}()
		logOut = f
	}
	log := logger.SetupWriter(cfg, logOut)

	consoleCfg := &ConsoleConfig{
		APIBaseURL:   *apiURL,
		Timeout:      30 * time.Second,
		TickInterval: cfg.TickInterval(),
		Source:       flag.Arg(0),
	}

	var model ConsoleUI
	if *remote {
		model, err = remoteModel(consoleCfg)
	} else {
		var cleanup func()
		model, cleanup, err = localModel(cfg, consoleCfg, log, *mute, *watchFile)
		if cleanup != nil {
			defer cleanup()
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func localModel(cfg *config.Config, consoleCfg *ConsoleConfig, log *slog.Logger, mute, watchFile bool) (ConsoleUI, func(), error) {
	files := storage.NewFileStore(cfg.DataDir, log)

	var engine *audio.Engine
	if !mute {
		engine = audio.NewEngine(cfg.AudioSampleRate, files, log, audio.WithFallbackTone())
	}

	player := NewPlayer(files, consoleCfg.Source, engine, log, playback.WithMaxTaskDuration(cfg.MaxTaskDuration))
	if err := player.Load(context.Background()); err != nil {
		return ConsoleUI{}, nil, err
	}
	if err := player.Start(); err != nil {
		return ConsoleUI{}, nil, err
	}

	cleanup := player.Stop
	var changes <-chan string
	if watchFile {
		w, err := watch.New(log, watch.DefaultDebounce)
		if err != nil {
			return ConsoleUI{}, cleanup, fmt.Errorf("failed to start watcher: %w", err)
		}
		if err := w.Add(watchPath(files, consoleCfg.Source)); err != nil {
			_ = w.Close()
			return ConsoleUI{}, cleanup, err
		}
		ctx, cancel := context.WithCancel(context.Background())
		go w.Run(ctx)
		changes = w.Changes()
		cleanup = func() {
			cancel()
			_ = w.Close()
			player.Stop()
		}
	}
	return NewLocalUI(consoleCfg, player, changes), cleanup, nil
}

func remoteModel(consoleCfg *ConsoleConfig) (ConsoleUI, error) {
	client := &http.Client{Timeout: consoleCfg.Timeout}
	if !testConnection(client, consoleCfg.APIBaseURL) {
		return ConsoleUI{}, fmt.Errorf("could not connect to API at %s. Please ensure the API is running.\nTry: go run ./cmd/api", consoleCfg.APIBaseURL)
	}

	sessionID := uuid.New()
	events := make(chan SSEEvent, 64)
	go func() {
		defer close(events)
		// the stream outlives the request timeout
		streamClient := &http.Client{}
		if err := listenToSSE(context.Background(), streamClient, consoleCfg.APIBaseURL, sessionID, events); err != nil {
			events <- SSEEvent{Type: "rehearsal.failed", Data: map[string]any{"error": err.Error()}}
		}
	}()
	return NewRemoteUI(consoleCfg, client, sessionID, events), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
