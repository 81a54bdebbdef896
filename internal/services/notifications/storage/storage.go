// Package storage defines the persistence boundary for the notification
// inbox.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested inbox item is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a write collided with a uniqueness constraint.
	ErrConflict = errors.New("record conflict")
)

// InboxRecord is one displayed notification.
type InboxRecord struct {
	ID          string
	Profile     string
	Kind        string
	Tag         string
	Title       string
	Body        string
	ActionsJSON string
	DedupeKey   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ReadAt      *time.Time
}

// InboxPage is one page of a profile inbox, newest first.
type InboxPage struct {
	Items         []InboxRecord
	NextPageToken string
}

// InboxStore persists inbox items per profile.
type InboxStore interface {
	PutInboxItem(ctx context.Context, record InboxRecord) error
	GetInboxItemByDedupeKey(ctx context.Context, profile string, dedupeKey string) (InboxRecord, error)
	ListInbox(ctx context.Context, profile string, pageSize int, pageToken string) (InboxPage, error)
	CountUnread(ctx context.Context, profile string) (int, error)
	MarkRead(ctx context.Context, profile string, itemID string, readAt time.Time) (InboxRecord, error)
}
