package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwebster45206/cutscene-engine/internal/config"
	"github.com/jwebster45206/cutscene-engine/internal/handlers"
	"github.com/jwebster45206/cutscene-engine/internal/logger"
	"github.com/jwebster45206/cutscene-engine/internal/middleware"
	"github.com/jwebster45206/cutscene-engine/internal/services/events"
	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	"github.com/jwebster45206/cutscene-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Cutscene Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"data_dir", cfg.DataDir)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	files := storage.NewFileStore(cfg.DataDir, log)
	queueClient := queue.NewClientFrom(store.Client(), log)
	rehearsals := queue.NewRehearsalQueue(queueClient)
	history := queue.NewSessionLog(queueClient)
	broadcaster := events.NewBroadcaster(store.Client(), log)

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(store, log))
	mux.Handle("/metrics", promhttp.Handler())

	scriptsHandler := handlers.NewScriptsHandler(store, files, log)
	mux.Handle("/v1/scripts", scriptsHandler)
	mux.Handle("/v1/scripts/{name}", scriptsHandler)

	mux.Handle("/v1/validate", handlers.NewValidateHandler(store, files, log))
	mux.Handle("/v1/rehearsals", handlers.NewRehearsalsHandler(rehearsals, broadcaster, log))
	mux.Handle("/v1/sessions/{id}/history", handlers.NewSessionsHandler(history, log))
	mux.Handle("/v1/events/session/{id}", handlers.NewEventsHandler(broadcaster, log))

	limited := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, http.MethodPost, http.MethodPut, http.MethodDelete)(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Logger(log)(limited),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the event stream stays open
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
