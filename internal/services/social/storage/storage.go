// Package storage defines persistence contracts for the user directory.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested user record is missing.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a user with the same email or username exists.
var ErrAlreadyExists = errors.New("record already exists")

// Preferences are the privacy switches on a profile.
type Preferences struct {
	ShareEmotions       bool `json:"shareEmotions"`
	AllowFriendRequests bool `json:"allowFriendRequests"`
	ShowOnlineStatus    bool `json:"showOnlineStatus"`
}

// DefaultPreferences are applied at signup.
func DefaultPreferences() Preferences {
	return Preferences{ShareEmotions: true, AllowFriendRequests: true, ShowOnlineStatus: true}
}

// User is the public profile. The JSON form matches the bloomyUser blob.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Username    string      `json:"username"`
	DisplayName string      `json:"displayName"`
	Avatar      string      `json:"avatar,omitempty"`
	Bio         string      `json:"bio,omitempty"`
	JoinedAt    time.Time   `json:"joinedAt"`
	IsOnline    bool        `json:"isOnline"`
	LastSeen    time.Time   `json:"lastSeen"`
	Preferences Preferences `json:"preferences"`
}

// Rehydrate normalizes instants to UTC.
func (u *User) Rehydrate() {
	u.JoinedAt = u.JoinedAt.UTC()
	u.LastSeen = u.LastSeen.UTC()
}

// UserRecord is a directory row: a profile plus its credential.
type UserRecord struct {
	User
	PasswordHash []byte
	UpdatedAt    time.Time
}

// UserStore persists directory users.
type UserStore interface {
	PutUser(ctx context.Context, record UserRecord) error
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (UserRecord, error)
	// SearchUsers matches username or display name by case-insensitive
	// substring, skipping excludeUserID.
	SearchUsers(ctx context.Context, query string, excludeUserID string, limit int) ([]User, error)
}
