package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const statusKeyPrefix = "health:model:"

// ErrStatusNotFound indicates no status has been recorded for the model.
var ErrStatusNotFound = errors.New("model status not found")

// RedisStore persists probe outcomes in Redis. Entries expire after the
// configured TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed status store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Set records the latest status for a model.
func (s *RedisStore) Set(ctx context.Context, status Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}

	if err := s.client.Set(ctx, statusKey(status.Model), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store status: %w", err)
	}

	return nil
}

// Get returns the last recorded status for a model.
func (s *RedisStore) Get(ctx context.Context, model string) (*Status, error) {
	data, err := s.client.Get(ctx, statusKey(model)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}

	return &status, nil
}

func statusKey(model string) string {
	return statusKeyPrefix + model
}
