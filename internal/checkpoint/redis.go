package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/listing-crawler/internal/domain"
)

// keyPrefix is the Redis key prefix for checkpoints.
const keyPrefix = "listing-crawler:checkpoint:"

// RedisStore keeps the state as JSON under one Redis key per crawl name.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store for the named crawl.
func NewRedisStore(client *redis.Client, name string) *RedisStore {
	return &RedisStore{client: client, key: keyPrefix + name}
}

// Key returns the Redis key in use.
func (s *RedisStore) Key() string {
	return s.key
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (*domain.CrawlState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return decode(data)
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, state *domain.CrawlState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: delete checkpoint: %w", domain.ErrPersistence, err)
	}
	return nil
}
