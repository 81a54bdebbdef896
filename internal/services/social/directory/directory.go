// Package directory is the account registry behind login, signup, and
// user search.
package directory

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/id"
	"github.com/louisbranch/bloomy/internal/services/social/profile"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"github.com/louisbranch/bloomy/internal/services/social/username"
	"golang.org/x/crypto/bcrypt"
)

// SearchLimit caps search results.
const SearchLimit = 20

// Directory registers and authenticates users.
type Directory struct {
	store storage.UserStore
	clock clock.Clock
	newID func() (string, error)
	cost  int
}

// Option configures a Directory.
type Option func(*Directory)

// WithClock sets the clock stamping joins and updates.
func WithClock(c clock.Clock) Option {
	return func(d *Directory) {
		if c != nil {
			d.clock = c
		}
	}
}

// WithIDGenerator overrides user id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(d *Directory) {
		if newID != nil {
			d.newID = newID
		}
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(d *Directory) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			d.cost = cost
		}
	}
}

// New builds a Directory over store.
func New(store storage.UserStore, opts ...Option) *Directory {
	d := &Directory{
		store: store,
		clock: clock.Real(),
		newID: id.NewID,
		cost:  bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NormalizeEmail lowercases and validates an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return "", apperrors.New(apperrors.CodeInvalidEmail, "email is invalid")
	}
	return email, nil
}

// Register creates a user with default preferences, marked online.
func (d *Directory) Register(ctx context.Context, email, password, name, displayName string) (storage.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return storage.User{}, err
	}
	canonical, err := username.Canonicalize(name)
	if err != nil {
		return storage.User{}, err
	}
	displayName, err = profile.NormalizeDisplayName(displayName)
	if err != nil {
		return storage.User{}, err
	}
	if password == "" {
		return storage.User{}, apperrors.New(apperrors.CodeInvalidCredentials, "password is required")
	}

	if _, err := d.store.GetUserByEmail(ctx, email); err == nil {
		return storage.User{}, apperrors.New(apperrors.CodeUserExists, "email already registered")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, fmt.Errorf("lookup email: %w", err)
	}
	if _, err := d.store.GetUserByUsername(ctx, canonical); err == nil {
		return storage.User{}, apperrors.New(apperrors.CodeUserExists, "username already taken")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.User{}, fmt.Errorf("lookup username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}
	userID, err := d.newID()
	if err != nil {
		return storage.User{}, err
	}
	now := d.clock.Now().UTC()
	record := storage.UserRecord{
		User: storage.User{
			ID:          userID,
			Email:       email,
			Username:    canonical,
			DisplayName: displayName,
			JoinedAt:    now,
			IsOnline:    true,
			LastSeen:    now,
			Preferences: storage.DefaultPreferences(),
		},
		PasswordHash: hash,
		UpdatedAt:    now,
	}
	if err := d.store.PutUser(ctx, record); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return storage.User{}, apperrors.Wrap(apperrors.CodeUserExists, "user already exists", err)
		}
		return storage.User{}, fmt.Errorf("register user: %w", err)
	}
	return record.User, nil
}

// Authenticate checks a password and marks the user online.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (storage.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	record, err := d.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.New(apperrors.CodeInvalidCredentials, "unknown email")
		}
		return storage.User{}, fmt.Errorf("lookup email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(record.PasswordHash, []byte(password)); err != nil {
		return storage.User{}, apperrors.New(apperrors.CodeInvalidCredentials, "password mismatch")
	}

	now := d.clock.Now().UTC()
	record.IsOnline = true
	record.LastSeen = now
	record.UpdatedAt = now
	if err := d.store.PutUser(ctx, record); err != nil {
		return storage.User{}, fmt.Errorf("mark user online: %w", err)
	}
	return record.User, nil
}

// SignOut marks a user offline.
func (d *Directory) SignOut(ctx context.Context, userID string) error {
	record, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	now := d.clock.Now().UTC()
	record.IsOnline = false
	record.LastSeen = now
	record.UpdatedAt = now
	if err := d.store.PutUser(ctx, record); err != nil {
		return fmt.Errorf("mark user offline: %w", err)
	}
	return nil
}

// ByID returns the user with userID.
func (d *Directory) ByID(ctx context.Context, userID string) (storage.User, error) {
	record, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.Wrap(apperrors.CodeNotFound, "user not found", err)
		}
		return storage.User{}, err
	}
	return record.User, nil
}

// ByUsername returns the user with name after canonicalization.
func (d *Directory) ByUsername(ctx context.Context, name string) (storage.User, error) {
	canonical, err := username.Canonicalize(name)
	if err != nil {
		return storage.User{}, apperrors.Wrap(apperrors.CodeNotFound, "user not found", err)
	}
	record, err := d.store.GetUserByUsername(ctx, canonical)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.Wrap(apperrors.CodeNotFound, "user not found", err)
		}
		return storage.User{}, err
	}
	return record.User, nil
}

// Search matches username or display name by case-insensitive substring,
// leaving out excludeUserID.
func (d *Directory) Search(ctx context.Context, query, excludeUserID string) ([]storage.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return d.store.SearchUsers(ctx, query, excludeUserID, SearchLimit)
}

// UpdateProfile applies a normalized profile patch to the stored user.
func (d *Directory) UpdateProfile(ctx context.Context, userID string, patch profile.Patch) (storage.User, error) {
	record, err := d.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.User{}, apperrors.Wrap(apperrors.CodeNotFound, "user not found", err)
		}
		return storage.User{}, err
	}
	record.User = profile.Apply(record.User, patch)
	record.UpdatedAt = d.clock.Now().UTC()
	if err := d.store.PutUser(ctx, record); err != nil {
		return storage.User{}, fmt.Errorf("update profile: %w", err)
	}
	return record.User, nil
}
