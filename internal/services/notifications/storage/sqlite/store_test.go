package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/bloomy/internal/services/notifications/storage"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestPutListAndMarkRead(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 9, 0, 0, 0, time.UTC)

	inputs := []storage.InboxRecord{
		{ID: "item-1", Profile: "default", Kind: "daily-checkin", Title: "Good morning!", Body: "How are you?", CreatedAt: now},
		{ID: "item-2", Profile: "default", Kind: "mood-reminder", Title: "Bloomy Check-in", Body: "Check in", ActionsJSON: `[{"action":"track-mood","title":"Track Mood"}]`, CreatedAt: now.Add(3 * time.Hour)},
		{ID: "item-3", Profile: "other", Kind: "mood-reminder", Title: "Bloomy Check-in", Body: "Other profile", CreatedAt: now.Add(4 * time.Hour)},
		{ID: "item-4", Profile: "default", Kind: "breathing", Title: "Breathe", Body: "In and out", CreatedAt: now.Add(7 * time.Hour)},
	}
	for _, input := range inputs {
		if err := store.PutInboxItem(ctx, input); err != nil {
			t.Fatalf("put %s: %v", input.ID, err)
		}
	}

	pageOne, err := store.ListInbox(ctx, "default", 2, "")
	if err != nil {
		t.Fatalf("list page one: %v", err)
	}
	if len(pageOne.Items) != 2 || pageOne.Items[0].ID != "item-4" || pageOne.Items[1].ID != "item-2" {
		t.Fatalf("unexpected page one: %+v", pageOne.Items)
	}
	if pageOne.NextPageToken != "item-2" {
		t.Fatalf("next page token = %q, want item-2", pageOne.NextPageToken)
	}
	if pageOne.Items[1].ActionsJSON != `[{"action":"track-mood","title":"Track Mood"}]` {
		t.Fatalf("actions json = %q", pageOne.Items[1].ActionsJSON)
	}
	if pageOne.Items[0].Tag != "breathing" {
		t.Fatalf("tag default = %q, want kind", pageOne.Items[0].Tag)
	}

	pageTwo, err := store.ListInbox(ctx, "default", 2, pageOne.NextPageToken)
	if err != nil {
		t.Fatalf("list page two: %v", err)
	}
	if len(pageTwo.Items) != 1 || pageTwo.Items[0].ID != "item-1" || pageTwo.NextPageToken != "" {
		t.Fatalf("unexpected page two: %+v", pageTwo)
	}

	unread, err := store.CountUnread(ctx, "default")
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 3 {
		t.Fatalf("unread = %d, want 3", unread)
	}

	readAt := now.Add(8 * time.Hour)
	read, err := store.MarkRead(ctx, "default", "item-2", readAt)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil || !read.ReadAt.Equal(readAt) {
		t.Fatalf("read_at = %v, want %v", read.ReadAt, readAt)
	}
	again, err := store.MarkRead(ctx, "default", "item-2", readAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("mark read again: %v", err)
	}
	if !again.ReadAt.Equal(readAt) {
		t.Fatalf("second mark read moved read_at to %v", again.ReadAt)
	}
	if unread, _ := store.CountUnread(ctx, "default"); unread != 2 {
		t.Fatalf("unread after mark = %d, want 2", unread)
	}

	if _, err := store.MarkRead(ctx, "default", "item-3", readAt); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("mark read other profile error = %v, want not found", err)
	}
}

func TestDedupeKeyIsUniquePerProfile(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

	first := storage.InboxRecord{ID: "item-1", Profile: "default", Kind: "mood-reminder", DedupeKey: "mood-reminder:1", CreatedAt: now}
	if err := store.PutInboxItem(ctx, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	dup := first
	dup.ID = "item-2"
	if err := store.PutInboxItem(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("duplicate dedupe key error = %v, want conflict", err)
	}
	other := dup
	other.Profile = "other"
	if err := store.PutInboxItem(ctx, other); err != nil {
		t.Fatalf("same key other profile: %v", err)
	}
	undeduped := storage.InboxRecord{ID: "item-3", Profile: "default", Kind: "breathing", CreatedAt: now}
	undeduped2 := storage.InboxRecord{ID: "item-4", Profile: "default", Kind: "breathing", CreatedAt: now}
	if err := store.PutInboxItem(ctx, undeduped); err != nil {
		t.Fatalf("put without key: %v", err)
	}
	if err := store.PutInboxItem(ctx, undeduped2); err != nil {
		t.Fatalf("put second without key: %v", err)
	}

	got, err := store.GetInboxItemByDedupeKey(ctx, "default", "mood-reminder:1")
	if err != nil {
		t.Fatalf("get by dedupe key: %v", err)
	}
	if got.ID != "item-1" {
		t.Fatalf("dedupe lookup id = %q, want item-1", got.ID)
	}
	if _, err := store.GetInboxItemByDedupeKey(ctx, "default", "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing dedupe key error = %v", err)
	}
}

func TestPutInboxItemValidates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Now()
	for name, record := range map[string]storage.InboxRecord{
		"missing id":      {Profile: "default", Kind: "breathing", CreatedAt: now},
		"missing profile": {ID: "x", Kind: "breathing", CreatedAt: now},
		"missing kind":    {ID: "x", Profile: "default", CreatedAt: now},
		"missing created": {ID: "x", Profile: "default", Kind: "breathing"},
	} {
		if err := store.PutInboxItem(context.Background(), record); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inbox.sqlite")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
