// Package redis provides a reference.Store backed by Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auth0/go-oidc-server/dataformat"
	"github.com/auth0/go-oidc-server/dataformat/reference"
)

// DefaultKeyPrefix is prepended to every handle.
const DefaultKeyPrefix = "oidc:token:"

// Config contains configuration options for the Redis store
type Config struct {
	// Client is the Redis client instance
	Client redis.UniversalClient

	// KeyPrefix is the prefix for all Redis keys
	// Default: "oidc:token:"
	KeyPrefix string
}

// Store implements reference.Store using Redis string keys with native TTLs.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ reference.Store = (*Store)(nil)

// New creates a Redis-backed store.
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	return &Store{
		client:    config.Client,
		keyPrefix: config.KeyPrefix,
	}, nil
}

// Put stores payload under handle.
func (s *Store) Put(ctx context.Context, handle string, payload []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(handle), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", s.key(handle), err)
	}
	return nil
}

// Get returns the payload stored under handle.
func (s *Store) Get(ctx context.Context, handle string) ([]byte, error) {
	payload, err := s.client.Get(ctx, s.key(handle)).Bytes()
	return s.result(handle, payload, err)
}

// Take returns and removes the payload stored under handle with GETDEL.
func (s *Store) Take(ctx context.Context, handle string) ([]byte, error) {
	payload, err := s.client.GetDel(ctx, s.key(handle)).Bytes()
	return s.result(handle, payload, err)
}

// Delete removes handle.
func (s *Store) Delete(ctx context.Context, handle string) error {
	if err := s.client.Del(ctx, s.key(handle)).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", s.key(handle), err)
	}
	return nil
}

func (s *Store) result(handle string, payload []byte, err error) ([]byte, error) {
	if errors.Is(err, redis.Nil) {
		return nil, dataformat.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", s.key(handle), err)
	}
	return payload, nil
}

func (s *Store) key(handle string) string {
	return s.keyPrefix + handle
}
