package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps JSON-encoded values of T under a key prefix.
type Store[T any] struct {
	client redis.UniversalClient
	prefix string
}

// NewStore creates a Store writing keys as "<prefix>:<key>".
func NewStore[T any](client redis.UniversalClient, prefix string) *Store[T] {
	return &Store[T]{client: client, prefix: strings.TrimSuffix(strings.TrimSpace(prefix), ":")}
}

// Get returns the value under key. A missing key is (zero, false, nil).
func (s *Store[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var v T
	k, err := s.key(key)
	if err != nil {
		return v, false, err
	}
	raw, err := s.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("redis get %s: %w", k, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false, errors.Join(ErrDecode, err)
	}
	return v, true, nil
}

// Set stores v under key for ttl. A non-positive ttl keeps the key forever.
func (s *Store[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", k, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, k, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", k, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, k).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", k, err)
	}
	return nil
}

func (s *Store[T]) key(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrEmptyKey
	}
	if s.prefix == "" {
		return key, nil
	}
	return s.prefix + ":" + key, nil
}
