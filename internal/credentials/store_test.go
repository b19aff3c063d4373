package credentials

import (
	"context"
	"testing"

	"github.com/pagelens/ocr-gateway/internal/errors"
)

func TestMemoryStoreFallback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	key, err := store.Load(ctx, "fallback-key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if key != "fallback-key" {
		t.Errorf("expected fallback key before any save, got %q", key)
	}
}

func TestMemoryStoreSaveLoad(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "user-key"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	key, err := store.Load(ctx, "fallback-key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if key != "user-key" {
		t.Errorf("expected saved key, got %q", key)
	}
}

func TestMemoryStoreRejectsEmptyKey(t *testing.T) {
	store := NewMemoryStore()

	err := store.Save(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty key")
	}
	if !errors.IsValidation(err) {
		t.Errorf("expected validation error, got: %v", err)
	}
}

func TestMemoryStoreClearSuppressesFallback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Save(ctx, "user-key"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	key, err := store.Load(ctx, "fallback-key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if key != "" {
		t.Errorf("expected empty key after explicit clear, got %q", key)
	}

	// Saving again lifts the cleared state
	if err := store.Save(ctx, "new-key"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	key, err = store.Load(ctx, "fallback-key")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if key != "new-key" {
		t.Errorf("expected new key after re-save, got %q", key)
	}
}

func TestMemoryStoreNotifiesSubscribers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var seen []string
	store.Subscribe(func(apiKey string) {
		seen = append(seen, apiKey)
	})

	if err := store.Save(ctx, "first"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if err := store.Save(ctx, "second"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	want := []string{"first", "", "second"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d: expected %q, got %q", i, want[i], seen[i])
		}
	}
}
