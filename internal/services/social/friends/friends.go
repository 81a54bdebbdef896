// Package friends keeps the current user's friend list and outgoing
// requests.
package friends

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/id"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	platformotel "github.com/louisbranch/bloomy/internal/platform/otel"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// MinSearchLength is the shortest trimmed query that reaches the directory.
const MinSearchLength = 2

var tracer = platformotel.Tracer("social/friends")

// Status is a connection state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusBlocked  Status = "blocked"
)

// Friend is one connection to another user.
type Friend struct {
	ID             string       `json:"id"`
	User           storage.User `json:"user"`
	Status         Status       `json:"status"`
	ConnectedAt    time.Time    `json:"connectedAt"`
	SharedEmotions *int         `json:"sharedEmotions,omitempty"`
}

// List is a persisted friends or requests collection.
type List []Friend

// Rehydrate normalizes instants and drops rows with no id.
func (l *List) Rehydrate() {
	*l = slices.DeleteFunc(*l, func(f Friend) bool {
		return strings.TrimSpace(f.ID) == ""
	})
	for i := range *l {
		f := &(*l)[i]
		f.ConnectedAt = f.ConnectedAt.UTC()
		f.User.Rehydrate()
	}
}

func (l List) indexOf(id string) int {
	return slices.IndexFunc(l, func(f Friend) bool { return f.ID == id })
}

func (l List) hasUser(userID string) bool {
	return slices.ContainsFunc(l, func(f Friend) bool { return f.User.ID == userID })
}

// CurrentUser reports who is signed in.
type CurrentUser interface {
	CurrentUser() (storage.User, bool)
}

// Directory resolves other users.
type Directory interface {
	ByUsername(ctx context.Context, username string) (storage.User, error)
	Search(ctx context.Context, query, excludeUserID string) ([]storage.User, error)
}

// Manager owns both collections and writes them through on every change.
type Manager struct {
	mu           sync.Mutex
	friends      List
	requests     List
	friendsSlot  localstore.Slot[List]
	requestsSlot localstore.Slot[List]
	current      CurrentUser
	directory    Directory
	clock        clock.Clock
	newID        func() (string, error)
	logger       *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for connectedAt.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewManager restores both collections from store.
func NewManager(ctx context.Context, store *localstore.Store, current CurrentUser, directory Directory, opts ...Option) *Manager {
	m := &Manager{
		friendsSlot:  localstore.NewSlot[List](store, localstore.KeyFriends),
		requestsSlot: localstore.NewSlot[List](store, localstore.KeyFriendRequests),
		current:      current,
		directory:    directory,
		clock:        clock.Real(),
		newID:        id.NewID,
		logger:       zap.NewNop(),
	}
	if store != nil {
		m.logger = store.Logger().Named("friends")
	}
	for _, opt := range opts {
		opt(m)
	}
	if loaded, ok := m.friendsSlot.Load(ctx); ok {
		m.friends = loaded
	}
	if loaded, ok := m.requestsSlot.Load(ctx); ok {
		m.requests = loaded
	}
	return m
}

// Friends returns a copy of the accepted connections.
func (m *Manager) Friends() []Friend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.friends)
}

// Requests returns a copy of the pending requests.
func (m *Manager) Requests() []Friend {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// Send appends a pending request to username.
func (m *Manager) Send(ctx context.Context, username string) (Friend, error) {
	ctx, span := tracer.Start(ctx, "friends.Send")
	defer span.End()

	me, ok := m.current.CurrentUser()
	if !ok {
		return Friend{}, apperrors.New(apperrors.CodeNotAuthenticated, "sign in to send friend requests")
	}
	target, err := m.directory.ByUsername(ctx, username)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) || apperrors.HasCode(err, apperrors.CodeInvalidUsername) {
			return Friend{}, apperrors.WithMetadata(apperrors.CodeFriendTargetNotFound, "user not found", map[string]string{"username": username})
		}
		return Friend{}, err
	}
	span.SetAttributes(attribute.String("target_id", target.ID))
	if target.ID == me.ID {
		return Friend{}, apperrors.New(apperrors.CodeFriendSelfRequest, "cannot befriend yourself")
	}
	if !target.Preferences.AllowFriendRequests {
		return Friend{}, apperrors.New(apperrors.CodeFriendRequestsDisabled, "user does not accept friend requests")
	}
	requestID, err := m.newID()
	if err != nil {
		return Friend{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.friends.hasUser(target.ID) {
		return Friend{}, apperrors.New(apperrors.CodeFriendAlreadyConnected, "already friends")
	}
	if m.requests.hasUser(target.ID) {
		return Friend{}, apperrors.New(apperrors.CodeFriendRequestExists, "friend request already sent")
	}
	shared := 0
	request := Friend{
		ID:             requestID,
		User:           target,
		Status:         StatusPending,
		ConnectedAt:    m.clock.Now().UTC(),
		SharedEmotions: &shared,
	}
	m.requests = append(m.requests, request)
	_ = m.requestsSlot.Save(ctx, m.requests)
	m.logger.Info("friend request sent", zap.String("request_id", requestID), zap.String("target_id", target.ID))
	return request, nil
}

// Accept moves the request into the friend list as accepted.
func (m *Manager) Accept(ctx context.Context, requestID string) (Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.requests.indexOf(requestID)
	if i < 0 {
		return Friend{}, requestNotFound(requestID)
	}
	friend := m.requests[i]
	friend.Status = StatusAccepted
	m.requests = slices.Delete(m.requests, i, i+1)
	m.friends = append(m.friends, friend)
	_ = m.requestsSlot.Save(ctx, m.requests)
	_ = m.friendsSlot.Save(ctx, m.friends)
	return friend, nil
}

// Reject drops a pending request. Unknown ids are a no-op.
func (m *Manager) Reject(ctx context.Context, requestID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.requests.indexOf(requestID)
	if i < 0 {
		return
	}
	m.requests = slices.Delete(m.requests, i, i+1)
	_ = m.requestsSlot.Save(ctx, m.requests)
}

// Remove drops an accepted friend. Unknown ids are a no-op.
func (m *Manager) Remove(ctx context.Context, friendID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.friends.indexOf(friendID)
	if i < 0 {
		return
	}
	m.friends = slices.Delete(m.friends, i, i+1)
	_ = m.friendsSlot.Save(ctx, m.friends)
}

// Search finds other users by username or display name. Queries shorter
// than MinSearchLength after trimming return nothing.
func (m *Manager) Search(ctx context.Context, query string) ([]storage.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSearchLength {
		return []storage.User{}, nil
	}
	var exclude string
	if me, ok := m.current.CurrentUser(); ok {
		exclude = me.ID
	}
	users, err := m.directory.Search(ctx, query, exclude)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []storage.User{}
	}
	return users, nil
}

// Reset empties both collections and their keys.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friends = nil
	m.requests = nil
	_ = m.friendsSlot.Clear(ctx)
	_ = m.requestsSlot.Clear(ctx)
}

func requestNotFound(requestID string) error {
	return apperrors.WithMetadata(apperrors.CodeFriendRequestNotFound, "friend request not found", map[string]string{"request_id": requestID})
}
