package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pagelens/ocr-gateway/internal/cache"
	"github.com/pagelens/ocr-gateway/internal/credentials"
	"github.com/pagelens/ocr-gateway/internal/document"
	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/ocr"
)

type fakeClient struct {
	calls  int
	result *ocr.Result
	err    error

	lastAPIKey string
	lastInput  string
}

func (f *fakeClient) respond(input string) (*ocr.Result, error) {
	f.calls++
	f.lastInput = input
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeClient) ProcessDocumentURL(ctx context.Context, apiKey, url string) (*ocr.Result, error) {
	f.lastAPIKey = apiKey
	return f.respond(url)
}

func (f *fakeClient) ProcessImageURL(ctx context.Context, apiKey, url string) (*ocr.Result, error) {
	f.lastAPIKey = apiKey
	return f.respond(url)
}

func (f *fakeClient) ProcessDocumentBase64(ctx context.Context, apiKey, payload string) (*ocr.Result, error) {
	f.lastAPIKey = apiKey
	return f.respond(payload)
}

func (f *fakeClient) ProcessImageBase64(ctx context.Context, apiKey, payload, mimeType string) (*ocr.Result, error) {
	f.lastAPIKey = apiKey
	return f.respond(payload)
}

func newTestOrchestrator(t *testing.T, client *fakeClient, fallbackKey string) (*Orchestrator, credentials.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	store := cache.NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Hour)
	t.Cleanup(func() { store.Close() })

	creds := credentials.NewMemoryStore()
	return New(client, store, creds, fallbackKey), creds
}

func TestProcessMissCallsProviderOnce(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "extracted", Pages: 1, ProcessingTime: 0.5}}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")

	result, err := orch.Process(context.Background(), "", document.URLDocument("https://example.com/a.pdf"))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one provider call, got %d", client.calls)
	}
	if result.Text != "extracted" {
		t.Errorf("unexpected result text: %q", result.Text)
	}
	if client.lastAPIKey != "fallback-key" {
		t.Errorf("expected fallback credential, got %q", client.lastAPIKey)
	}
}

func TestProcessHitSkipsProvider(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "extracted", Pages: 1, ProcessingTime: 0.5}}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")
	ctx := context.Background()
	in := document.URLDocument("https://example.com/a.pdf")

	first, err := orch.Process(ctx, "", in)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}

	second, err := orch.Process(ctx, "", in)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}

	if client.calls != 1 {
		t.Errorf("expected cached result to skip the provider, got %d calls", client.calls)
	}
	if second.Text != first.Text || second.Pages != first.Pages {
		t.Errorf("cached result differs: first %+v, second %+v", first, second)
	}
}

func TestProcessFailureNotCached(t *testing.T) {
	client := &fakeClient{err: errors.NewAPICallError("ocr", nil)}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")
	ctx := context.Background()
	in := document.URLDocument("https://example.com/a.pdf")

	if _, err := orch.Process(ctx, "", in); err == nil {
		t.Fatal("expected provider error to surface")
	}

	// A later call retries the provider rather than serving a stale failure
	client.err = nil
	client.result = &ocr.Result{Text: "recovered", Pages: 1, ProcessingTime: 0.5}

	result, err := orch.Process(ctx, "", in)
	if err != nil {
		t.Fatalf("Process after recovery failed: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("unexpected text after recovery: %q", result.Text)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", client.calls)
	}
}

func TestProcessExplicitKeyWinsOverStored(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "t", Pages: 1, ProcessingTime: 0.1}}
	orch, creds := newTestOrchestrator(t, client, "fallback-key")
	ctx := context.Background()

	if err := creds.Save(ctx, "stored-key"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := orch.Process(ctx, "request-key", document.URLImage("https://example.com/a.png")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if client.lastAPIKey != "request-key" {
		t.Errorf("expected per-request key, got %q", client.lastAPIKey)
	}

	if _, err := orch.Process(ctx, "", document.URLImage("https://example.com/b.png")); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if client.lastAPIKey != "stored-key" {
		t.Errorf("expected stored key, got %q", client.lastAPIKey)
	}
}

func TestProcessNoCredentialFailsForRemoteInputs(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "t", Pages: 1, ProcessingTime: 0.1}}
	orch, creds := newTestOrchestrator(t, client, "")
	ctx := context.Background()

	if err := creds.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	_, err := orch.Process(ctx, "", document.URLDocument("https://example.com/a.pdf"))
	if err == nil {
		t.Fatal("expected error without a credential")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("expected no provider calls, got %d", client.calls)
	}
}

func TestProcessRejectsUnknownKind(t *testing.T) {
	client := &fakeClient{}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")

	_, err := orch.Process(context.Background(), "", document.Input{Kind: "smoke-signal"})
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestObserversSeeHitsAndMisses(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "t", Pages: 1, ProcessingTime: 0.1}}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")
	ctx := context.Background()
	in := document.URLDocument("https://example.com/a.pdf")

	var outcomes []Outcome
	orch.Subscribe(func(out Outcome) { outcomes = append(outcomes, out) })

	if _, err := orch.Process(ctx, "", in); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, err := orch.Process(ctx, "", in); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].CacheHit {
		t.Error("first outcome should be a miss")
	}
	if !outcomes[1].CacheHit {
		t.Error("second outcome should be a hit")
	}
	if outcomes[0].Key != outcomes[1].Key {
		t.Errorf("expected identical keys, got %q and %q", outcomes[0].Key, outcomes[1].Key)
	}
}

func TestClearCache(t *testing.T) {
	client := &fakeClient{result: &ocr.Result{Text: "t", Pages: 1, ProcessingTime: 0.1}}
	orch, _ := newTestOrchestrator(t, client, "fallback-key")
	ctx := context.Background()
	in := document.URLDocument("https://example.com/a.pdf")

	if _, err := orch.Process(ctx, "", in); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	removed, err := orch.ClearCache(ctx)
	if err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 entry removed, got %d", removed)
	}

	if _, err := orch.Process(ctx, "", in); err != nil {
		t.Fatalf("Process after clear failed: %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected provider call after cache clear, got %d total calls", client.calls)
	}
}
