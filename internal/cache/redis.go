package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/frothops/testgen/internal/models"
)

const redisKeyPrefix = "testgen:cache:"

// RedisStore is a Store backed by Redis, for deployments where cache entries
// must be shared across instances.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger

	now func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, addr string, db int, logger *slog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{client: client, logger: logger, now: time.Now}, nil
}

func (s *RedisStore) Get(ctx context.Context, fingerprint string) (models.CacheEntry, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if err == redis.Nil {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("reading cache entry: %w", err)
	}

	var stored storedEntry
	if err := json.Unmarshal(data, &stored); err != nil {
		// Treat an undecodable value as a miss; Cleanup will purge it.
		s.logger.Warn("discarding corrupt cache entry", "fingerprint", fingerprint, "error", err)
		return models.CacheEntry{}, false, nil
	}
	return stored.toEntry(), true, nil
}

func (s *RedisStore) Put(ctx context.Context, fingerprint string, entry models.CacheEntry) error {
	data, err := json.Marshal(toStored(entry))
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+fingerprint, data, 0).Err(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

func (s *RedisStore) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("reading cache entry: %w", err)
		}

		var stored storedEntry
		stale := false
		if err := json.Unmarshal(data, &stored); err != nil {
			stale = true
		} else if createdAt, err := time.Parse(time.RFC3339Nano, stored.CreatedAt); err != nil || createdAt.Before(cutoff) {
			stale = true
		}

		if stale {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("deleting cache entry: %w", err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scanning cache keys: %w", err)
	}
	return removed, nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
