// Package idempotency remembers the responses of create requests so a retried
// request with the same Idempotency-Key does not append a second child.
package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pending marks a key whose first request is still running.
const pending = "pending"

// Record is a stored response.
type Record struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// RedisStore keeps idempotency keys in Redis so every instance sees them.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) key(userID, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", userID, key)
}

// Reserve claims the key for the caller. It returns false when the key is already
// reserved or completed.
func (s *RedisStore) Reserve(ctx context.Context, userID, key string) (bool, error) {
	return s.client.SetNX(ctx, s.key(userID, key), pending, s.ttl).Result()
}

// Complete stores the response for the reserved key.
func (s *RedisStore) Complete(ctx context.Context, userID, key string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(userID, key), payload, s.ttl).Err()
}

// Lookup returns the stored response. ok is false when the key is unknown;
// a nil record with ok true means the first request has not finished.
func (s *RedisStore) Lookup(ctx context.Context, userID, key string) (*Record, bool, error) {
	raw, err := s.client.Get(ctx, s.key(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if raw == pending {
		return nil, true, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, false, fmt.Errorf("decode idempotency record: %w", err)
	}
	return &rec, true, nil
}

// Release forgets the key so the caller may retry after a failure.
func (s *RedisStore) Release(ctx context.Context, userID, key string) error {
	return s.client.Del(ctx, s.key(userID, key)).Err()
}
