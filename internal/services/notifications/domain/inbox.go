package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/id"
	"github.com/louisbranch/bloomy/internal/services/notifications/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// InboxItem is a displayed notification kept for later review.
type InboxItem struct {
	ID      string `json:"id"`
	Profile string `json:"profile"`
	Notification
	ReadAt *time.Time `json:"readAt,omitempty"`
}

// InboxPage is a page of a profile inbox, newest first.
type InboxPage struct {
	Items         []InboxItem `json:"items"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Unread        int         `json:"unread"`
}

// ListInboxInput configures inbox listing.
type ListInboxInput struct {
	Profile   string
	PageSize  int
	PageToken string
}

// Inbox records displayed notifications per profile.
type Inbox struct {
	store storage.InboxStore
	clock clock.Clock
	newID func() (string, error)
}

// NewInbox constructs the inbox service.
func NewInbox(store storage.InboxStore, c clock.Clock, newID func() (string, error)) *Inbox {
	if c == nil {
		c = clock.Real()
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Inbox{store: store, clock: c, newID: newID}
}

// Record stores n for profile. A non-empty dedupeKey makes the call
// idempotent: the first item recorded under it is returned.
func (s *Inbox) Record(ctx context.Context, profile string, n Notification, dedupeKey string) (InboxItem, error) {
	if s == nil || s.store == nil {
		return InboxItem{}, errors.New("inbox store is not configured")
	}
	profile = strings.TrimSpace(profile)
	if profile == "" {
		return InboxItem{}, apperrors.New(apperrors.CodeInvalidRequest, "profile is required")
	}
	if n.Kind == "" {
		return InboxItem{}, apperrors.New(apperrors.CodeInvalidRequest, "notification kind is required")
	}
	dedupeKey = strings.TrimSpace(dedupeKey)
	if dedupeKey != "" {
		existing, err := s.store.GetInboxItemByDedupeKey(ctx, profile, dedupeKey)
		if err == nil {
			return fromRecord(existing), nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return InboxItem{}, err
		}
	}

	itemID, err := s.newID()
	if err != nil {
		return InboxItem{}, err
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}
	actions, err := json.Marshal(n.Actions)
	if err != nil {
		return InboxItem{}, fmt.Errorf("encode actions: %w", err)
	}
	if n.Actions == nil {
		actions = []byte("[]")
	}
	record := storage.InboxRecord{
		ID:          itemID,
		Profile:     profile,
		Kind:        string(n.Kind),
		Tag:         n.Tag,
		Title:       n.Title,
		Body:        n.Body,
		ActionsJSON: string(actions),
		DedupeKey:   dedupeKey,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   createdAt.UTC(),
	}
	if err := s.store.PutInboxItem(ctx, record); err != nil {
		if dedupeKey != "" && errors.Is(err, storage.ErrConflict) {
			existing, lookupErr := s.store.GetInboxItemByDedupeKey(ctx, profile, dedupeKey)
			if lookupErr == nil {
				return fromRecord(existing), nil
			}
			if errors.Is(lookupErr, storage.ErrNotFound) {
				return InboxItem{}, err
			}
			return InboxItem{}, lookupErr
		}
		return InboxItem{}, err
	}
	return fromRecord(record), nil
}

// List pages a profile inbox and reports the unread total.
func (s *Inbox) List(ctx context.Context, input ListInboxInput) (InboxPage, error) {
	if s == nil || s.store == nil {
		return InboxPage{}, errors.New("inbox store is not configured")
	}
	profile := strings.TrimSpace(input.Profile)
	if profile == "" {
		return InboxPage{}, apperrors.New(apperrors.CodeInvalidRequest, "profile is required")
	}
	pageSize := input.PageSize
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}
	page, err := s.store.ListInbox(ctx, profile, pageSize, strings.TrimSpace(input.PageToken))
	if err != nil {
		return InboxPage{}, err
	}
	unread, err := s.store.CountUnread(ctx, profile)
	if err != nil {
		return InboxPage{}, err
	}
	out := InboxPage{
		Items:         make([]InboxItem, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
		Unread:        unread,
	}
	for _, record := range page.Items {
		out.Items = append(out.Items, fromRecord(record))
	}
	return out, nil
}

// MarkRead acknowledges one item.
func (s *Inbox) MarkRead(ctx context.Context, profile, itemID string) (InboxItem, error) {
	if s == nil || s.store == nil {
		return InboxItem{}, errors.New("inbox store is not configured")
	}
	profile = strings.TrimSpace(profile)
	itemID = strings.TrimSpace(itemID)
	if profile == "" || itemID == "" {
		return InboxItem{}, apperrors.New(apperrors.CodeInvalidRequest, "profile and item id are required")
	}
	record, err := s.store.MarkRead(ctx, profile, itemID, s.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return InboxItem{}, apperrors.Wrap(apperrors.CodeNotFound, "inbox item not found", err)
		}
		return InboxItem{}, err
	}
	return fromRecord(record), nil
}

func fromRecord(record storage.InboxRecord) InboxItem {
	var actions []Action
	if raw := strings.TrimSpace(record.ActionsJSON); raw != "" {
		// Undecodable actions are dropped; the item itself is still shown.
		_ = json.Unmarshal([]byte(raw), &actions)
	}
	if len(actions) == 0 {
		actions = nil
	}
	return InboxItem{
		ID:      record.ID,
		Profile: record.Profile,
		Notification: Notification{
			Kind:      Kind(record.Kind),
			Tag:       record.Tag,
			Title:     record.Title,
			Body:      record.Body,
			Actions:   actions,
			CreatedAt: record.CreatedAt,
		},
		ReadAt: record.ReadAt,
	}
}
