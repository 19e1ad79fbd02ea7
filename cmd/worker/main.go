package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"assogest/internal/config"
	"assogest/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var cache *services.Cache
	if cfg.RedisURL != "" {
		cache, err = services.NewCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, continuing without the run lock: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	directory := services.NewGormMemberDirectory(db)
	gateway := services.NewChannelRouter(cfg)
	processor := services.NewScheduledReminderProcessor(db, directory, gateway, cache, cfg.Processor, nil)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down worker...")
		cancel()
	}()

	log.Printf("Worker started, polling every %s", cfg.Processor.PollInterval)

	ticker := time.NewTicker(cfg.Processor.PollInterval)
	defer ticker.Stop()

	// Run once at startup, then on every tick.
	runOnce(ctx, processor)

	for {
		select {
		case <-ticker.C:
			runOnce(ctx, processor)
		case <-ctx.Done():
			return
		}
	}
}

func runOnce(ctx context.Context, processor *services.ScheduledReminderProcessor) {
	if ctx.Err() != nil {
		return
	}
	stats, err := processor.Run(ctx)
	if err != nil {
		log.Printf("Reminder run failed: %v", err)
		return
	}
	if stats.Fetched == 0 {
		log.Println("No due reminders found")
	}
}
