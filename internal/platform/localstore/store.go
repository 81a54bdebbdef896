// Package localstore persists per-key snapshots of application state.
//
// A Store maps a logical key to one encoded blob, namespaced by origin so
// profiles never share state. Reads tolerate every failure by reporting the
// key as absent; writes report errors but callers keep their in-memory state
// authoritative.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Well-known keys. The names match the blobs written by the browser client.
const (
	KeyUser                   = "bloomyUser"
	KeyFriends                = "bloomyFriends"
	KeyFriendRequests         = "bloomyFriendRequests"
	KeyMoodEntries            = "moodEntries"
	KeyEmotionEntries         = "emotionEntries"
	KeyNotificationPromptSeen = "hasSeenNotificationPrompt"
)

// KeyNotificationPermission holds the decided consent state. Browsers keep
// this outside page storage; here it lives beside the other keys.
const KeyNotificationPermission = "notificationPermission"

// DefaultOrigin namespaces keys when no profile is configured.
const DefaultOrigin = "default"

const probeKey = "__bloomy_probe__"

var (
	// ErrNotFound reports a missing key.
	ErrNotFound = errors.New("localstore: key not found")
	// ErrQuotaExceeded reports a write rejected for size.
	ErrQuotaExceeded = errors.New("localstore: quota exceeded")
	// ErrUnavailable reports a backend that cannot be used.
	ErrUnavailable = errors.New("localstore: backend unavailable")
)

// Backend stores raw blobs by fully qualified key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Rehydrator is implemented by values that normalize themselves after decode.
type Rehydrator interface {
	Rehydrate()
}

// Store encodes values onto a Backend under an origin namespace.
type Store struct {
	backend Backend
	codec   Codec
	origin  string
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec selects the blob encoding.
func WithCodec(codec Codec) Option {
	return func(s *Store) {
		if codec != nil {
			s.codec = codec
		}
	}
}

// WithOrigin sets the key namespace.
func WithOrigin(origin string) Option {
	return func(s *Store) {
		if origin = strings.TrimSpace(origin); origin != "" {
			s.origin = origin
		}
	}
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a Store. A nil backend yields a store where every read is
// absent and every write fails with ErrUnavailable.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codec:   JSON,
		origin:  DefaultOrigin,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Origin returns the key namespace.
func (s *Store) Origin() string {
	return s.origin
}

// Logger returns the store logger.
func (s *Store) Logger() *zap.Logger {
	return s.logger
}

func (s *Store) qualify(key string) string {
	return s.origin + "/" + key
}

// Load decodes the blob for key into dst and reports whether it was found.
// Missing keys, backend failures, and undecodable blobs all report false.
func (s *Store) Load(ctx context.Context, key string, dst any) bool {
	if s == nil || s.backend == nil {
		return false
	}
	raw, err := s.backend.Get(ctx, s.qualify(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("localstore load failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := s.codec.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("localstore decode failed", zap.String("key", key), zap.String("codec", s.codec.Name()), zap.Error(err))
		return false
	}
	if r, ok := dst.(Rehydrator); ok {
		r.Rehydrate()
	}
	return true
}

// Save encodes value and replaces the blob for key.
func (s *Store) Save(ctx context.Context, key string, value any) error {
	if s == nil || s.backend == nil {
		return ErrUnavailable
	}
	raw, err := s.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, s.qualify(key), raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Clear removes key. Clearing a missing key is not an error.
func (s *Store) Clear(ctx context.Context, key string) error {
	if s == nil || s.backend == nil {
		return ErrUnavailable
	}
	if err := s.backend.Delete(ctx, s.qualify(key)); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

// Available writes and removes a probe key.
func (s *Store) Available(ctx context.Context) bool {
	if s == nil || s.backend == nil {
		return false
	}
	key := s.qualify(probeKey)
	if err := s.backend.Put(ctx, key, []byte("1")); err != nil {
		s.logger.Warn("localstore unavailable", zap.Error(err))
		return false
	}
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("localstore probe cleanup failed", zap.Error(err))
		return false
	}
	return true
}
