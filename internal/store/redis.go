package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store that keeps the snapshot as a plain redis string.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

// Load returns the value at key.
func (s *redisStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %q from redis: %w", key, err)
	}
	return data, nil
}

// Save overwrites key without expiry.
func (s *redisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %q to redis: %w", key, err)
	}
	return nil
}
