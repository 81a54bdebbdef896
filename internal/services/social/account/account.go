// Package account owns the signed-in user for one profile.
package account

import (
	"context"
	"sync"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	platformotel "github.com/louisbranch/bloomy/internal/platform/otel"
	"github.com/louisbranch/bloomy/internal/services/social/profile"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"go.uber.org/zap"
)

var tracer = platformotel.Tracer("social/account")

// Directory is the account registry the manager signs in against.
type Directory interface {
	Register(ctx context.Context, email, password, username, displayName string) (storage.User, error)
	Authenticate(ctx context.Context, email, password string) (storage.User, error)
	SignOut(ctx context.Context, userID string) error
	UpdateProfile(ctx context.Context, userID string, patch profile.Patch) (storage.User, error)
}

// Session is the result of a successful login or signup.
type Session struct {
	User  storage.User `json:"user"`
	Token string       `json:"token,omitempty"`
}

// Manager holds the current user and writes it through to the local store.
type Manager struct {
	mu        sync.Mutex
	user      *storage.User
	slot      localstore.Slot[storage.User]
	directory Directory
	sessions  *Sessions
	onLogout  []func(context.Context)
	onSwitch  []func(context.Context)
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithSessions enables token issuance on login and signup.
func WithSessions(sessions *Sessions) Option {
	return func(m *Manager) {
		m.sessions = sessions
	}
}

// NewManager restores the persisted user from store.
func NewManager(ctx context.Context, store *localstore.Store, directory Directory, opts ...Option) *Manager {
	m := &Manager{
		slot:      localstore.NewSlot[storage.User](store, localstore.KeyUser),
		directory: directory,
		logger:    zap.NewNop(),
	}
	if store != nil {
		m.logger = store.Logger().Named("account")
	}
	for _, opt := range opts {
		opt(m)
	}
	if user, ok := m.slot.Load(ctx); ok && user.ID != "" {
		m.user = &user
	}
	return m
}

// OnLogout registers fn to run after the user is cleared.
func (m *Manager) OnLogout(fn func(context.Context)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.mu.Unlock()
}

// OnSwitch registers fn to run when a login or signup replaces a different
// signed-in user. Collections owned by the previous user are reset there.
func (m *Manager) OnSwitch(fn func(context.Context)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.onSwitch = append(m.onSwitch, fn)
	m.mu.Unlock()
}

// CurrentUser returns the signed-in user.
func (m *Manager) CurrentUser() (storage.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return storage.User{}, false
	}
	return *m.user, true
}

// IsAuthenticated reports whether a user is signed in.
func (m *Manager) IsAuthenticated() bool {
	_, ok := m.CurrentUser()
	return ok
}

func (m *Manager) setUser(ctx context.Context, user storage.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	_ = m.slot.Save(ctx, user)
}

// signIn makes user current. When it replaces someone else, the previous
// user is signed out of the directory and the switch hooks run.
func (m *Manager) signIn(ctx context.Context, user storage.User) {
	m.mu.Lock()
	previous := m.user
	m.user = &user
	_ = m.slot.Save(ctx, user)
	hooks := append([]func(context.Context){}, m.onSwitch...)
	m.mu.Unlock()

	if previous == nil || previous.ID == user.ID {
		return
	}
	if err := m.directory.SignOut(ctx, previous.ID); err != nil {
		m.logger.Warn("sign out failed", zap.String("user_id", previous.ID), zap.Error(err))
	}
	m.logger.Info("switched user", zap.String("previous_user_id", previous.ID), zap.String("user_id", user.ID))
	for _, hook := range hooks {
		hook(ctx)
	}
}

func (m *Manager) session(user storage.User) (Session, error) {
	session := Session{User: user}
	if m.sessions == nil {
		return session, nil
	}
	token, err := m.sessions.Issue(user)
	if err != nil {
		return Session{}, err
	}
	session.Token = token
	return session, nil
}

// Login signs in with email and password. A wrong email or password yields
// CodeInvalidCredentials and leaves the current user unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	ctx, span := tracer.Start(ctx, "account.Login")
	defer span.End()

	user, err := m.directory.Authenticate(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	m.signIn(ctx, user)
	m.logger.Info("signed in", zap.String("user_id", user.ID))
	return m.session(user)
}

// Signup registers and signs in a new user.
func (m *Manager) Signup(ctx context.Context, email, password, username, displayName string) (Session, error) {
	ctx, span := tracer.Start(ctx, "account.Signup")
	defer span.End()

	user, err := m.directory.Register(ctx, email, password, username, displayName)
	if err != nil {
		return Session{}, err
	}
	m.signIn(ctx, user)
	m.logger.Info("signed up", zap.String("user_id", user.ID))
	return m.session(user)
}

// Logout clears the user and runs logout hooks. Logging out twice is a
// no-op the second time.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	user := m.user
	m.user = nil
	hooks := append([]func(context.Context){}, m.onLogout...)
	_ = m.slot.Clear(ctx)
	m.mu.Unlock()

	if user != nil {
		if err := m.directory.SignOut(ctx, user.ID); err != nil {
			m.logger.Warn("sign out failed", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	for _, hook := range hooks {
		hook(ctx)
	}
}

// UpdateProfile merges patch into the current user.
func (m *Manager) UpdateProfile(ctx context.Context, patch profile.Patch) (storage.User, error) {
	current, ok := m.CurrentUser()
	if !ok {
		return storage.User{}, apperrors.New(apperrors.CodeNotAuthenticated, "no current user")
	}
	normalized, err := profile.Normalize(patch)
	if err != nil {
		return storage.User{}, err
	}
	updated, err := m.directory.UpdateProfile(ctx, current.ID, normalized)
	if err != nil {
		return storage.User{}, err
	}
	// The session copy keeps its own online flags.
	updated.IsOnline = current.IsOnline
	updated.LastSeen = current.LastSeen
	m.setUser(ctx, updated)
	return updated, nil
}

// Sessions returns the token issuer, if configured.
func (m *Manager) Sessions() *Sessions {
	return m.sessions
}
