/**
 * Configuration for the OCR gateway worker
 *
 * Loads configuration from environment variables.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (task queue + result cache)
	RedisURL string

	// PostgreSQL configuration (credential persistence, optional)
	DatabaseURL string

	// External OCR API
	OCRAPIURL string
	OCRModel  string
	// Fallback default credential; suppressed after an explicit clear
	OCRAPIKey string

	// Result cache
	CacheTTL time.Duration

	// Qdrant vector index for extracted text (optional)
	QdrantURL        string
	QdrantCollection string
	VoyageAPIKey     string

	// Worker configuration
	QueueName         string
	WorkerConcurrency int
	MaxFileSize       int64
	ProcessingTimeout time.Duration

	// Tesseract fallback for offline processing
	TesseractPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		OCRAPIURL:         getEnvOrDefault("OCR_API_URL", "https://api.mistral.ai"),
		OCRModel:          getEnvOrDefault("OCR_MODEL", "mistral-ocr-latest"),
		OCRAPIKey:         getEnvOrDefault("OCR_API_KEY", ""),
		CacheTTL:          getEnvAsDurationOrDefault("CACHE_TTL", 24*time.Hour),
		QdrantURL:         getEnvOrDefault("QDRANT_URL", ""),
		QdrantCollection:  getEnvOrDefault("QDRANT_COLLECTION", "ocr_documents"),
		VoyageAPIKey:      getEnvOrDefault("VOYAGE_API_KEY", ""),
		QueueName:         getEnvOrDefault("QUEUE_NAME", "ocr:process"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		MaxFileSize:       getEnvAsInt64OrDefault("MAX_FILE_SIZE", 52428800), // 50MB
		ProcessingTimeout: getEnvAsDurationOrDefault("PROCESSING_TIMEOUT", 5*time.Minute),
		TesseractPath:     getEnvOrDefault("TESSERACT_PATH", "/usr/bin/tesseract"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.OCRAPIURL == "" {
		return fmt.Errorf("OCR_API_URL is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 1073741824 { // 1KB to 1GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 1GB, got %d", c.MaxFileSize)
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.CacheTTL)
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsInt64OrDefault gets environment variable as int64 or returns default
func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDurationOrDefault gets environment variable as a Go duration
// string (e.g. "30m", "24h") or returns default
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
