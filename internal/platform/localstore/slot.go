package localstore

import (
	"context"

	"go.uber.org/zap"
)

// Slot is a typed view of one key.
type Slot[T any] struct {
	store *Store
	key   string
}

// NewSlot binds key on store to T.
func NewSlot[T any](store *Store, key string) Slot[T] {
	return Slot[T]{store: store, key: key}
}

// Key returns the unqualified key.
func (s Slot[T]) Key() string {
	return s.key
}

// Load returns the stored value. If *T implements Rehydrator it runs after
// decode.
func (s Slot[T]) Load(ctx context.Context) (T, bool) {
	var value T
	if !s.store.Load(ctx, s.key, &value) {
		var zero T
		return zero, false
	}
	return value, true
}

// Save writes value through. Failures are logged at warn and returned so
// callers may ignore them.
func (s Slot[T]) Save(ctx context.Context, value T) error {
	err := s.store.Save(ctx, s.key, value)
	if err != nil && s.store != nil {
		s.store.logger.Warn("localstore write dropped", zap.String("key", s.key), zap.Error(err))
	}
	return err
}

// Clear removes the key, logging failures.
func (s Slot[T]) Clear(ctx context.Context) error {
	err := s.store.Clear(ctx, s.key)
	if err != nil && s.store != nil {
		s.store.logger.Warn("localstore clear dropped", zap.String("key", s.key), zap.Error(err))
	}
	return err
}
