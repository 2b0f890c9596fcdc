package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/cutscene-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/cutscene-engine/pkg/queue"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379", "Redis URL")
	script := flag.String("script", "", "stored script to rehearse")
	playlist := flag.String("playlist", "", "playlist to rehearse")
	session := flag.String("session", "00000000-0000-0000-0000-000000000001", "session id")
	flag.Parse()

	sessionID, err := uuid.Parse(*session)
	if err != nil {
		log.Fatal("Invalid session id:", err)
	}

	client, err := queue.NewClient(context.Background(), *redisURL, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	fmt.Println("Connected to Redis successfully!")

	ctx := context.Background()
	q := queue.NewRehearsalQueue(client)

	requests := []*queuePkg.Request{{
		RequestID: uuid.New().String(),
		Type:      queuePkg.RequestTypeInline,
		SessionID: sessionID,
		Lines: []string{
			"prop door :door x:50 y:60 time:0:4",
			"change door z:1 time:-1",
			"sound creak time:0.5",
		},
		EnqueuedAt: time.Now(),
	}}
	if *script != "" {
		requests = append(requests, &queuePkg.Request{
			RequestID:  uuid.New().String(),
			Type:       queuePkg.RequestTypeScript,
			SessionID:  sessionID,
			Name:       *script,
			EnqueuedAt: time.Now(),
		})
	}
	if *playlist != "" {
		requests = append(requests, &queuePkg.Request{
			RequestID:  uuid.New().String(),
			Type:       queuePkg.RequestTypePlaylist,
			SessionID:  sessionID,
			Name:       *playlist,
			EnqueuedAt: time.Now(),
		})
	}

	for _, req := range requests {
		if err := q.Enqueue(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("✅ Enqueued %s rehearsal: %s\n", req.Type, req.RequestID)
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}

	fmt.Printf("\n📊 Queue depth: %d requests\n", depth)
	fmt.Println("\n💡 Now start the worker to see it process these requests!")
	fmt.Println("   Run: go run cmd/worker/main.go")
	fmt.Printf("   History: curl localhost:8080/v1/sessions/%s/history\n", sessionID)
}
