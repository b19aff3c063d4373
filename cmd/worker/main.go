/**
 * OCR Gateway Worker - Main Entry Point
 *
 * Redis-backed worker that turns OCR jobs into cached results.
 *
 * Architecture:
 * - Asynq consumer for the Redis job queue
 * - Cache-first orchestration: identical inputs hit the provider once
 * - Mistral OCR API client with Tesseract fallback for offline images
 * - PostgreSQL credential persistence (optional)
 * - VoyageAI + Qdrant semantic index over extracted text (optional)
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pagelens/ocr-gateway/internal/cache"
	"github.com/pagelens/ocr-gateway/internal/config"
	"github.com/pagelens/ocr-gateway/internal/credentials"
	"github.com/pagelens/ocr-gateway/internal/index"
	"github.com/pagelens/ocr-gateway/internal/ocr"
	"github.com/pagelens/ocr-gateway/internal/orchestrator"
	"github.com/pagelens/ocr-gateway/internal/queue"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("OCR gateway worker starting...")
	log.Printf("Configuration loaded: Redis=%s, API=%s, Model=%s, Workers=%d",
		cfg.RedisURL, cfg.OCRAPIURL, cfg.OCRModel, cfg.WorkerConcurrency)

	// Result cache
	store, err := cache.NewRedisStore(cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis cache: %v", err)
	}
	defer store.Close()
	log.Printf("Result cache connected (TTL=%s)", cfg.CacheTTL)

	// Credential store: PostgreSQL when configured, in-memory otherwise
	var creds credentials.Store
	var pgStore *credentials.PostgresStore
	if cfg.DatabaseURL != "" {
		pgStore, err = credentials.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize credential store: %v", err)
		}
		defer pgStore.Close()
		creds = pgStore
		log.Printf("Credential store: PostgreSQL")
	} else {
		creds = credentials.NewMemoryStore()
		log.Printf("Credential store: in-memory")
	}

	client := ocr.NewClient(cfg.OCRAPIURL, cfg.OCRModel)

	opts := []orchestrator.Option{
		orchestrator.WithLocalOCR(ocr.NewTesseract(cfg.TesseractPath)),
	}

	// Semantic index is optional; the worker runs fine without it
	if cfg.QdrantURL != "" && cfg.VoyageAPIKey != "" {
		embeddings, err := index.NewEmbeddingClient(cfg.VoyageAPIKey)
		if err != nil {
			log.Fatalf("Failed to initialize embedding client: %v", err)
		}
		vectors, err := index.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			log.Fatalf("Failed to initialize vector store: %v", err)
		}
		defer vectors.Close()
		opts = append(opts, orchestrator.WithIndexer(index.NewIndexer(embeddings, vectors)))
		log.Printf("Semantic index enabled (collection=%s)", cfg.QdrantCollection)
	}

	orch := orchestrator.New(client, store, creds, cfg.OCRAPIKey, opts...)

	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:          cfg.RedisURL,
		QueueName:         cfg.QueueName,
		Concurrency:       cfg.WorkerConcurrency,
		ProcessingTimeout: cfg.ProcessingTimeout,
		MaxFileSize:       cfg.MaxFileSize,
	}, orch)
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}

	ctx := context.Background()
	if err := consumer.Start(ctx); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	log.Printf("===========================================")
	log.Printf("OCR gateway worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s", cfg.QueueName)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Cache TTL: %s", cfg.CacheTTL)
	log.Printf("Processing timeout: %s", cfg.ProcessingTimeout)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	}

	log.Printf("Shutdown complete")
}
