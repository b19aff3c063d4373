/**
 * Queue Consumer for OCR jobs
 *
 * Consumes OCR jobs from Redis and runs them through the orchestrator.
 * Uses Asynq for queue management. Transient failures are retried twice
 * with backoff; validation failures are terminal.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/pagelens/ocr-gateway/internal/classify"
	"github.com/pagelens/ocr-gateway/internal/document"
	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/fileio"
	"github.com/pagelens/ocr-gateway/internal/logging"
	"github.com/pagelens/ocr-gateway/internal/orchestrator"
)

// TaskTypeProcess is the asynq task type for OCR jobs
const TaskTypeProcess = "ocr:process"

// maxRetries is how many times a transient failure is re-attempted
const maxRetries = 2

// JobData is the payload of an OCR job. Source holds free text to be
// classified (URL or base64); FilePath points at a local file instead.
type JobData struct {
	JobID    string `json:"jobId"`
	Source   string `json:"source,omitempty"`
	FilePath string `json:"filePath,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

// Consumer pulls OCR jobs off the Redis queue
type Consumer struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	orch   *orchestrator.Orchestrator
	config *ConsumerConfig
	logger *logging.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	RedisURL          string
	QueueName         string
	Concurrency       int
	ProcessingTimeout time.Duration
	MaxFileSize       int64
}

// NewConsumer creates a queue consumer backed by orch
func NewConsumer(cfg *ConsumerConfig, orch *orchestrator.Orchestrator) (*Consumer, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("RedisURL is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("QueueName is required")
	}
	if orch == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := logging.NewLogger("queue")

	client := asynq.NewClient(redisOpt)

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				cfg.QueueName: 10,
				"default":     1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				// Exponential backoff: 5s, 10s, 20s, capped at 60s
				delay := time.Duration(5*(1<<uint(n))) * time.Second
				if delay > 60*time.Second {
					delay = 60 * time.Second
				}
				return delay
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task processing error",
					"type", task.Type(),
					"payload", string(task.Payload()),
					"error", err.Error())
			}),
		},
	)

	mux := asynq.NewServeMux()

	consumer := &Consumer{
		client: client,
		server: server,
		mux:    mux,
		orch:   orch,
		config: cfg,
		logger: logger,
	}

	mux.HandleFunc(TaskTypeProcess, consumer.handleProcess)

	return consumer, nil
}

// Enqueue submits an OCR job and returns its ID
func (c *Consumer) Enqueue(ctx context.Context, job JobData) (string, error) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	task := asynq.NewTask(TaskTypeProcess, payload)
	if _, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.config.QueueName),
		asynq.MaxRetry(maxRetries),
	); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	return job.JobID, nil
}

// Start launches the consumer loop
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("Starting queue consumer",
		"concurrency", c.config.Concurrency,
		"queue", c.config.QueueName)

	go func() {
		if err := c.server.Run(c.mux); err != nil {
			c.logger.Error("Queue consumer error", "error", err.Error())
		}
	}()

	return nil
}

// Stop shuts the consumer down gracefully
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping queue consumer")

	c.server.Shutdown()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close client: %w", err)
	}

	c.logger.Info("Queue consumer stopped")
	return nil
}

func (c *Consumer) handleProcess(ctx context.Context, task *asynq.Task) error {
	startTime := time.Now()

	var job JobData
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	c.logger.Info("Processing job", "job", job.JobID)

	in, err := c.resolveInput(job)
	if err != nil {
		// Bad input never succeeds on retry
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	timeout := c.config.ProcessingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	processCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.orch.Process(processCtx, job.APIKey, in)
	duration := time.Since(startTime)

	if err != nil {
		if processCtx.Err() == context.DeadlineExceeded {
			c.logger.Error("Job timed out", "job", job.JobID, "timeout", timeout.String())
			return fmt.Errorf("processing timeout: %w", errors.NewProcessingTimeoutError(timeout, err))
		}
		if errors.IsValidation(err) {
			c.logger.Warn("Job rejected", "job", job.JobID, "error", err.Error())
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		c.logger.Error("Job failed", "job", job.JobID, "duration", duration.String(), "error", err.Error())
		return fmt.Errorf("OCR processing failed: %w", err)
	}

	c.logger.Info("Job completed",
		"job", job.JobID,
		"duration", duration.String(),
		"pages", result.Pages,
		"chars", len(result.Text))

	return nil
}

// resolveInput maps a job payload to a typed document input
func (c *Consumer) resolveInput(job JobData) (document.Input, error) {
	if job.FilePath != "" {
		f, err := fileio.Open(job.FilePath, job.MimeType)
		if err != nil {
			return document.Input{}, err
		}
		if c.config != nil && c.config.MaxFileSize > 0 && f.Size() > c.config.MaxFileSize {
			return document.Input{}, errors.NewValidationError(
				fmt.Sprintf("file exceeds size limit: %d > %d bytes", f.Size(), c.config.MaxFileSize))
		}
		return document.FromFile(f), nil
	}

	if classify.HasMultipleURLs(job.Source) {
		return document.Input{}, errors.NewValidationError("source contains multiple URLs; submit one document per job")
	}

	det := classify.Classify(job.Source)
	switch det.InputType {
	case classify.InputURL:
		switch det.ContentType {
		case classify.ContentPDF:
			return document.URLDocument(det.Value), nil
		case classify.ContentImage:
			return document.URLImage(det.Value), nil
		default:
			return document.Input{}, errors.NewValidationError("URL does not end in a supported document or image extension")
		}
	case classify.InputBase64:
		switch det.ContentType {
		case classify.ContentPDF:
			return document.Base64Document(det.Value), nil
		case classify.ContentImage:
			return document.Base64Image(det.Value, job.MimeType), nil
		default:
			return document.Input{}, errors.NewValidationError("base64 payload has no recognizable document signature")
		}
	default:
		return document.Input{}, errors.NewValidationError("source is neither a URL nor a base64 document")
	}
}
