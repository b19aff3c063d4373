package cache

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pagelens/ocr-gateway/internal/cachekey"
	"github.com/pagelens/ocr-gateway/internal/ocr"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, time.Hour)
	t.Cleanup(func() { store.Close() })

	return store, mr
}

func testKey(tokens ...string) cachekey.Key {
	return cachekey.Key(append([]string{cachekey.Namespace}, tokens...))
}

func TestGetMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	result, found, err := store.Get(context.Background(), testKey("url-document", "missing"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected miss for absent key")
	}
	if result != nil {
		t.Error("expected nil result on miss")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	key := testKey("url-document", "https://example.com/a.pdf")
	stored := &ocr.Result{
		Text:           "page one\n\n---\n\npage two",
		Pages:          2,
		ProcessingTime: 1.25,
		Images: []ocr.PageImage{
			{ID: "img-0", TopLeftX: 1, TopLeftY: 2, BottomRightX: 3, BottomRightY: 4, ImageBase64: "aGVsbG8="},
		},
	}

	if err := store.Set(ctx, key, stored); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, found, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if !reflect.DeepEqual(got, stored) {
		t.Errorf("round trip mismatch:\nstored: %+v\ngot:    %+v", stored, got)
	}
}

func TestSetAppliesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	key := testKey("url-image", "https://example.com/scan.png")
	if err := store.Set(ctx, key, &ocr.Result{Text: "x", Pages: 1, ProcessingTime: 0.1}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, found, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected entry to expire after TTL")
	}
}

func TestCorruptEntryTreatedAsMiss(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	key := testKey("base64-document", "deadbeef")
	mr.Set(key.String(), "not json at all")

	result, found, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found || result != nil {
		t.Error("expected corrupt entry to read as a miss")
	}
	if mr.Exists(key.String()) {
		t.Error("expected corrupt entry to be deleted")
	}
}

func TestRemoveAllClearsOnlyPrefix(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for _, k := range []cachekey.Key{
		testKey("url-document", "https://example.com/a.pdf"),
		testKey("url-image", "https://example.com/b.png"),
	} {
		if err := store.Set(ctx, k, &ocr.Result{Text: "t", Pages: 1, ProcessingTime: 0.1}); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	mr.Set("other:unrelated", "keep me")

	removed, err := store.RemoveAll(ctx, cachekey.Namespace)
	if err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if !mr.Exists("other:unrelated") {
		t.Error("expected unrelated key to survive")
	}
}
