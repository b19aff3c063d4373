/**
 * Redis-backed result cache
 *
 * Stores normalized OCR results as JSON values under hierarchical keys.
 * A miss is never an error: callers distinguish hit/miss from the found
 * flag and only see errors for transport or decode failures.
 */

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagelens/ocr-gateway/internal/cachekey"
	"github.com/pagelens/ocr-gateway/internal/errors"
	"github.com/pagelens/ocr-gateway/internal/logging"
	"github.com/pagelens/ocr-gateway/internal/ocr"
)

// Store is the result cache used by the orchestrator
type Store interface {
	Get(ctx context.Context, key cachekey.Key) (*ocr.Result, bool, error)
	Set(ctx context.Context, key cachekey.Key, result *ocr.Result) error
	RemoveAll(ctx context.Context, prefix string) (int64, error)
	Close() error
}

// RedisStore implements Store on top of a Redis instance
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("cache"),
	}, nil
}

// NewRedisStoreFromClient wraps an existing client, used by tests
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logging.NewLogger("cache"),
	}
}

// Get returns the cached result for key, or found=false on a miss
func (s *RedisStore) Get(ctx context.Context, key cachekey.Key) (*ocr.Result, bool, error) {
	data, err := s.client.Get(ctx, key.String()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewCacheError("get", err)
	}

	var result ocr.Result
	if err := json.Unmarshal(data, &result); err != nil {
		// Treat a corrupt entry as a miss so the caller reprocesses
		s.logger.Error("Dropping corrupt cache entry", "key", key.String(), "error", err.Error())
		s.client.Del(ctx, key.String())
		return nil, false, nil
	}

	return &result, true, nil
}

// Set stores a result under key with the configured TTL
func (s *RedisStore) Set(ctx context.Context, key cachekey.Key, result *ocr.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return errors.NewCacheError("set", err)
	}

	if err := s.client.Set(ctx, key.String(), data, s.ttl).Err(); err != nil {
		return errors.NewCacheError("set", err)
	}

	return nil
}

// RemoveAll deletes every key under prefix and returns the count removed
func (s *RedisStore) RemoveAll(ctx context.Context, prefix string) (int64, error) {
	var removed int64
	var cursor uint64

	pattern := prefix + ":*"
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, errors.NewCacheError("scan", err)
		}

		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, errors.NewCacheError("del", err)
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	s.logger.Info("Cleared cache entries", "prefix", prefix, "removed", removed)
	return removed, nil
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}
