package domain

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/id"
	"github.com/louisbranch/bloomy/internal/services/notifications/storage"
)

func TestRecordIsIdempotentByDedupeKey(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	inbox := NewInbox(store, clock.Fake(time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)), id.Sequence("item-1", "item-2"))
	n := Notification{Kind: KindDailyCheckin, Tag: "daily-checkin", Title: "Good morning!", Actions: []Action{{ID: ActionCheckin, Title: "Check-in Now"}}}

	first, err := inbox.Record(context.Background(), "default", n, "daily-checkin:1")
	if err != nil {
		t.Fatalf("record first: %v", err)
	}
	second, err := inbox.Record(context.Background(), "default", n, "daily-checkin:1")
	if err != nil {
		t.Fatalf("record second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("dedupe returned %q, want %q", second.ID, first.ID)
	}
	if len(store.items) != 1 {
		t.Fatalf("stored %d items, want 1", len(store.items))
	}
	if len(first.Actions) != 1 || first.Actions[0].ID != ActionCheckin {
		t.Fatalf("actions = %+v", first.Actions)
	}
	if !first.CreatedAt.Equal(time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("created at = %v, want clock time", first.CreatedAt)
	}
}

func TestRecordValidates(t *testing.T) {
	t.Parallel()

	inbox := NewInbox(newFakeStore(), nil, id.Sequence("item-1"))
	if _, err := inbox.Record(context.Background(), " ", Notification{Kind: KindBreathing}, ""); !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
		t.Fatalf("blank profile error = %v", err)
	}
	if _, err := inbox.Record(context.Background(), "default", Notification{}, ""); !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
		t.Fatalf("blank kind error = %v", err)
	}
}

func TestListPaginatesNewestFirstAndCountsUnread(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 2, 21, 8, 0, 0, 0, time.UTC)
	store := newFakeStore()
	inbox := NewInbox(store, clock.Fake(base), id.Sequence("item-1", "item-2", "item-3", "item-4"))
	ctx := context.Background()

	for i, profile := range []string{"default", "other", "default", "default"} {
		n := Notification{Kind: KindMoodReminder, Tag: "mood-reminder", CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, err := inbox.Record(ctx, profile, n, ""); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	pageOne, err := inbox.List(ctx, ListInboxInput{Profile: "default", PageSize: 2})
	if err != nil {
		t.Fatalf("list page one: %v", err)
	}
	if len(pageOne.Items) != 2 || pageOne.Items[0].ID != "item-4" || pageOne.Items[1].ID != "item-3" {
		t.Fatalf("unexpected page one: %+v", pageOne.Items)
	}
	if pageOne.Unread != 3 {
		t.Fatalf("unread = %d, want 3", pageOne.Unread)
	}
	pageTwo, err := inbox.List(ctx, ListInboxInput{Profile: "default", PageSize: 2, PageToken: pageOne.NextPageToken})
	if err != nil {
		t.Fatalf("list page two: %v", err)
	}
	if len(pageTwo.Items) != 1 || pageTwo.Items[0].ID != "item-1" {
		t.Fatalf("unexpected page two: %+v", pageTwo.Items)
	}
}

func TestMarkRead(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 20, 45, 0, 0, time.UTC)
	inbox := NewInbox(newFakeStore(), clock.Fake(now), id.Sequence("item-1"))
	ctx := context.Background()
	created, err := inbox.Record(ctx, "default", Notification{Kind: KindBreathing}, "")
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	read, err := inbox.MarkRead(ctx, "default", created.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil || !read.ReadAt.Equal(now) {
		t.Fatalf("read at = %v, want %v", read.ReadAt, now)
	}
	if _, err := inbox.MarkRead(ctx, "default", "missing"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("missing item error = %v", err)
	}
}

func TestRecordConcurrentDedupeReturnsSingleItem(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	var mu sync.Mutex
	next := 0
	newID := func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		next++
		return fmt.Sprintf("item-%d", next), nil
	}
	inbox := NewInbox(store, nil, newID)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			item, err := inbox.Record(context.Background(), "default", Notification{Kind: KindAchievement}, "achievement:streak")
			if err != nil {
				t.Errorf("record %d: %v", i, err)
				return
			}
			ids[i] = item.ID
		}(i)
	}
	wg.Wait()

	for _, got := range ids {
		if got != ids[0] {
			t.Fatalf("ids diverged: %v", ids)
		}
	}
	if len(store.items) != 1 {
		t.Fatalf("stored %d items, want 1", len(store.items))
	}
}

type fakeStore struct {
	mu    sync.Mutex
	items map[string]storage.InboxRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]storage.InboxRecord{}}
}

func (s *fakeStore) PutInboxItem(_ context.Context, record storage.InboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.DedupeKey != "" {
		for _, existing := range s.items {
			if existing.Profile == record.Profile && existing.DedupeKey == record.DedupeKey && existing.ID != record.ID {
				return storage.ErrConflict
			}
		}
	}
	s.items[record.ID] = record
	return nil
}

func (s *fakeStore) GetInboxItemByDedupeKey(_ context.Context, profile, dedupeKey string) (storage.InboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Profile == profile && existing.DedupeKey == dedupeKey {
			return existing, nil
		}
	}
	return storage.InboxRecord{}, storage.ErrNotFound
}

func (s *fakeStore) ListInbox(_ context.Context, profile string, pageSize int, pageToken string) (storage.InboxPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []storage.InboxRecord
	for _, item := range s.items {
		if item.Profile == profile {
			all = append(all, item)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if pageToken != "" {
		for i, item := range all {
			if item.ID == pageToken {
				all = all[i+1:]
				break
			}
		}
	}
	page := storage.InboxPage{}
	if len(all) > pageSize {
		page.NextPageToken = all[pageSize-1].ID
		all = all[:pageSize]
	}
	page.Items = all
	return page, nil
}

func (s *fakeStore) CountUnread(_ context.Context, profile string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, item := range s.items {
		if item.Profile == profile && item.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (s *fakeStore) MarkRead(_ context.Context, profile, itemID string, readAt time.Time) (storage.InboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[itemID]
	if !ok || item.Profile != profile {
		return storage.InboxRecord{}, storage.ErrNotFound
	}
	if item.ReadAt == nil {
		item.ReadAt = &readAt
	}
	s.items[itemID] = item
	return item, nil
}
