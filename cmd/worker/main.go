package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"wheelofnames/internal/config"
	"wheelofnames/internal/history"
	"wheelofnames/internal/queue"
	"wheelofnames/internal/rowstore"
	"wheelofnames/internal/store"
)

// Worker drains wheel lifecycle events from Redis into the history table.
func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" || cfg.DBDriver == "memory" {
		log.Fatalf("worker needs a shared queue and database (QUEUE_BACKEND=%s, DB_DRIVER=%s)", cfg.QueueBackend, cfg.DBDriver)
	}

	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	rows := rowstore.NewSQL(db.Client, db.Dialect)
	if err := rows.Migrate(ctx); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet; consumer will retry", cfg.RedisAddr)
	}

	log.Println("worker started, waiting for messages...")
	n, err := history.Run(ctx, queue.NewRedisQueue(redisClient.Client, cfg.QueueKey), rows)
	if err != nil {
		log.Fatalf("queue consume failed: %v", err)
	}
	log.Printf("worker stopped after %d entries", n)
}
