package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/cutscene-engine/internal/config"
	"github.com/jwebster45206/cutscene-engine/internal/logger"
	"github.com/jwebster45206/cutscene-engine/internal/services/events"
	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	"github.com/jwebster45206/cutscene-engine/internal/storage"
	"github.com/jwebster45206/cutscene-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Cutscene Engine Worker",
		"environment", cfg.Environment,
		"worker_id", cfg.WorkerID,
		"tick_rate", cfg.TickRate)

	queueClient, err := queue.NewClient(context.Background(), cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()

	rehearsals := queue.NewRehearsalQueue(queueClient)
	history := queue.NewSessionLog(queueClient)
	log.Info("Queue service initialized successfully")

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	// Locks and events share the queue's connection pool
	rdb := queueClient.GetRedisClient()
	broadcaster := events.NewBroadcaster(rdb, log)
	files := storage.NewFileStore(cfg.DataDir, log)

	processor := worker.NewRehearsalProcessor(store, files, broadcaster, history, log,
		cfg.TickInterval(), cfg.MaxTaskDuration)

	w := worker.New(rehearsals, processor, rdb, log, cfg.WorkerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("Worker started, waiting for requests...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give worker time to finish current request
	time.Sleep(2 * time.Second)

	log.Info("Worker exited")
}
