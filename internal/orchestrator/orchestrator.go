/**
 * Cache-first OCR orchestration
 *
 * Every request resolves to a deterministic cache key before any network
 * activity. A hit short-circuits the provider entirely; a miss performs
 * exactly one provider call and stores the result only on success.
 */

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/pagelens/ocr-gateway/internal/cache"
	"github.com/pagelens/ocr-gateway/internal/cachekey"
	"github.com/pagelens/ocr-gateway/internal/credentials"
	"github.com/pagelens/ocr-gateway/internal/document"
	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/logging"
	"github.com/pagelens/ocr-gateway/internal/ocr"
)

// OCRClient is the remote provider surface the orchestrator drives
type OCRClient interface {
	ProcessDocumentURL(ctx context.Context, apiKey string, url string) (*ocr.Result, error)
	ProcessImageURL(ctx context.Context, apiKey string, url string) (*ocr.Result, error)
	ProcessDocumentBase64(ctx context.Context, apiKey string, payload string) (*ocr.Result, error)
	ProcessImageBase64(ctx context.Context, apiKey string, payload string, mimeType string) (*ocr.Result, error)
}

// LocalOCR is the offline engine used for image files when no API
// credential is available
type LocalOCR interface {
	ProcessBytes(ctx context.Context, data []byte) (*ocr.Result, error)
}

// Indexer receives processed text for search indexing, off the critical path
type Indexer interface {
	Index(ctx context.Context, key string, text string) error
}

// Outcome describes one completed Process call for observers
type Outcome struct {
	Key      string
	Kind     document.Kind
	CacheHit bool
	Duration time.Duration
	Result   *ocr.Result
}

// Orchestrator ties the classifier, cache, credential store and OCR
// clients together
type Orchestrator struct {
	client      OCRClient
	local       LocalOCR
	cache       cache.Store
	creds       credentials.Store
	indexer     Indexer
	fallbackKey string
	logger      *logging.Logger

	mu        sync.Mutex
	observers []func(Outcome)
}

// Option configures optional orchestrator collaborators
type Option func(*Orchestrator)

// WithLocalOCR enables the offline engine for image files
func WithLocalOCR(local LocalOCR) Option {
	return func(o *Orchestrator) { o.local = local }
}

// WithIndexer enables non-fatal search indexing of processed text
func WithIndexer(indexer Indexer) Option {
	return func(o *Orchestrator) { o.indexer = indexer }
}

// New creates an orchestrator
func New(client OCRClient, store cache.Store, creds credentials.Store, fallbackKey string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:      client,
		cache:       store,
		creds:       creds,
		fallbackKey: fallbackKey,
		logger:      logging.NewLogger("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers an observer invoked after every successful Process
func (o *Orchestrator) Subscribe(fn func(Outcome)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

// Process resolves in through the cache, calling the provider only on a
// miss. An empty apiKey falls back to the stored credential.
func (o *Orchestrator) Process(ctx context.Context, apiKey string, in document.Input) (*ocr.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	key, err := cachekey.KeyFor(ctx, in)
	if err != nil {
		return nil, err
	}

	cached, found, err := o.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to always-miss
		o.logger.Warn("Cache lookup failed", "key", key.String(), "error", err.Error())
	}
	if found {
		o.logger.Debug("Cache hit", "key", key.String())
		o.notify(Outcome{Key: key.String(), Kind: in.Kind, CacheHit: true, Duration: time.Since(start), Result: cached})
		return cached, nil
	}

	result, err := o.processMiss(ctx, apiKey, in)
	if err != nil {
		return nil, err
	}

	if err := o.cache.Set(ctx, key, result); err != nil {
		o.logger.Warn("Failed to cache result", "key", key.String(), "error", err.Error())
	}

	if o.indexer != nil {
		if err := o.indexer.Index(ctx, key.String(), result.Text); err != nil {
			o.logger.Warn("Indexing failed", "key", key.String(), "error", err.Error())
		}
	}

	o.notify(Outcome{Key: key.String(), Kind: in.Kind, CacheHit: false, Duration: time.Since(start), Result: result})
	return result, nil
}

// ClearCache removes every cached result and returns the count removed
func (o *Orchestrator) ClearCache(ctx context.Context) (int64, error) {
	return o.cache.RemoveAll(ctx, cachekey.Namespace)
}

func (o *Orchestrator) processMiss(ctx context.Context, apiKey string, in document.Input) (*ocr.Result, error) {
	if apiKey == "" {
		loaded, err := o.creds.Load(ctx, o.fallbackKey)
		if err != nil {
			return nil, err
		}
		apiKey = loaded
	}

	if apiKey == "" {
		return o.processLocal(ctx, in)
	}

	switch in.Kind {
	case document.KindURLDocument:
		return o.client.ProcessDocumentURL(ctx, apiKey, in.URL)
	case document.KindURLImage:
		return o.client.ProcessImageURL(ctx, apiKey, in.URL)
	case document.KindBase64Document:
		return o.client.ProcessDocumentBase64(ctx, apiKey, in.Base64)
	case document.KindBase64Image:
		return o.client.ProcessImageBase64(ctx, apiKey, in.Base64, in.MimeType)
	case document.KindFile:
		payload, err := in.File.Base64(ctx)
		if err != nil {
			return nil, errors.NewStorageError("failed to read file", err)
		}
		if in.File.IsPDF() {
			return o.client.ProcessDocumentBase64(ctx, apiKey, payload)
		}
		return o.client.ProcessImageBase64(ctx, apiKey, payload, in.File.MimeType())
	default:
		return nil, errors.NewValidationError("unrecognized document kind: " + string(in.Kind))
	}
}

// processLocal handles the no-credential path. Only image files can be
// processed offline.
func (o *Orchestrator) processLocal(ctx context.Context, in document.Input) (*ocr.Result, error) {
	if o.local == nil || in.Kind != document.KindFile || !in.File.IsImage() {
		return nil, errors.NewValidationError("no API credential configured")
	}

	data, err := in.File.Bytes(ctx)
	if err != nil {
		return nil, errors.NewStorageError("failed to read file", err)
	}

	o.logger.Info("Processing image offline", "file", in.File.Name())
	return o.local.ProcessBytes(ctx, data)
}

func (o *Orchestrator) notify(out Outcome) {
	o.mu.Lock()
	observers := make([]func(Outcome), len(o.observers))
	copy(observers, o.observers)
	o.mu.Unlock()

	for _, fn := range observers {
		fn(out)
	}
}
