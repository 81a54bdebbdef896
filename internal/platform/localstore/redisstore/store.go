// Package redisstore provides a Redis localstore backend.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces keys written by Store.
const DefaultPrefix = "bloomy:ls"

// Client is the subset of redis commands Store needs.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Store keeps blobs as plain redis strings under a prefix.
type Store struct {
	rdb    Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps a redis client.
func New(rdb Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Store, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: ping redis: %v", localstore.ErrUnavailable, err)
	}
	return New(client, opts...), client, nil
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

// Get implements localstore.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.rdb == nil {
		return nil, localstore.ErrUnavailable
	}
	value, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, localstore.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

// Put implements localstore.Backend. Keys never expire.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if s == nil || s.rdb == nil {
		return localstore.ErrUnavailable
	}
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		if strings.Contains(err.Error(), "OOM") {
			return fmt.Errorf("%w: %v", localstore.ErrQuotaExceeded, err)
		}
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete implements localstore.Backend.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.rdb == nil {
		return localstore.ErrUnavailable
	}
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
