package friends

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/id"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
)

type fakeCurrent struct {
	user *storage.User
}

func (f fakeCurrent) CurrentUser() (storage.User, bool) {
	if f.user == nil {
		return storage.User{}, false
	}
	return *f.user, true
}

type fakeDirectory struct {
	users    []storage.User
	searches []string
}

func (f *fakeDirectory) ByUsername(_ context.Context, username string) (storage.User, error) {
	for _, u := range f.users {
		if u.Username == strings.TrimPrefix(username, "@") {
			return u, nil
		}
	}
	return storage.User{}, apperrors.New(apperrors.CodeNotFound, "user not found")
}

func (f *fakeDirectory) Search(_ context.Context, query, exclude string) ([]storage.User, error) {
	f.searches = append(f.searches, query)
	var out []storage.User
	for _, u := range f.users {
		if u.ID == exclude {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

var (
	alice = storage.User{ID: "1", Username: "alice_bloom", Preferences: storage.DefaultPreferences()}
	bob   = storage.User{ID: "2", Username: "bob_zen", Preferences: storage.DefaultPreferences(),
		JoinedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), LastSeen: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)}
	carol = storage.User{ID: "3", Username: "carol_mindful", Preferences: storage.DefaultPreferences()}
	dave  = storage.User{ID: "4", Username: "dave_quiet", Preferences: storage.Preferences{}}
)

func newManager(t *testing.T, store *localstore.Store, dir *fakeDirectory) *Manager {
	t.Helper()
	if store == nil {
		store = localstore.New(localstore.NewMemory(0))
	}
	me := alice
	return NewManager(context.Background(), store, fakeCurrent{user: &me}, dir,
		WithClock(clock.Fake(time.Date(2024, 4, 2, 9, 30, 0, 0, time.UTC))),
		WithIDGenerator(id.Sequence("req-1", "req-2", "req-3")),
	)
}

func TestSendRejectsInvalidTargets(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{users: []storage.User{alice, bob, dave}}
	m := newManager(t, nil, dir)
	ctx := context.Background()

	tests := []struct {
		username string
		code     apperrors.Code
	}{
		{username: "nobody", code: apperrors.CodeFriendTargetNotFound},
		{username: "alice_bloom", code: apperrors.CodeFriendSelfRequest},
		{username: "dave_quiet", code: apperrors.CodeFriendRequestsDisabled},
	}
	for _, tc := range tests {
		if _, err := m.Send(ctx, tc.username); !apperrors.HasCode(err, tc.code) {
			t.Fatalf("Send(%q) error = %v, want %s", tc.username, err, tc.code)
		}
	}
	if got := len(m.Requests()); got != 0 {
		t.Fatalf("requests = %d, want 0", got)
	}
}

func TestSendRequiresCurrentUser(t *testing.T) {
	t.Parallel()

	m := NewManager(context.Background(), localstore.New(localstore.NewMemory(0)), fakeCurrent{}, &fakeDirectory{users: []storage.User{bob}})
	if _, err := m.Send(context.Background(), "bob_zen"); !apperrors.HasCode(err, apperrors.CodeNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}

func TestDuplicateRequestThenAcceptMovesExactlyOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, nil, &fakeDirectory{users: []storage.User{alice, bob, carol}})

	request, err := m.Send(ctx, "bob_zen")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if request.Status != StatusPending || request.SharedEmotions == nil || *request.SharedEmotions != 0 {
		t.Fatalf("unexpected request %+v", request)
	}
	if _, err := m.Send(ctx, "bob_zen"); !apperrors.HasCode(err, apperrors.CodeFriendRequestExists) {
		t.Fatalf("expected request exists, got %v", err)
	}
	if len(m.Requests()) != 1 {
		t.Fatalf("requests = %d, want 1", len(m.Requests()))
	}

	friend, err := m.Accept(ctx, request.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if friend.Status != StatusAccepted {
		t.Fatalf("status = %s, want accepted", friend.Status)
	}
	if len(m.Requests()) != 0 || len(m.Friends()) != 1 {
		t.Fatalf("requests=%d friends=%d, want 0 and 1", len(m.Requests()), len(m.Friends()))
	}
	if _, err := m.Accept(ctx, request.ID); !apperrors.HasCode(err, apperrors.CodeFriendRequestNotFound) {
		t.Fatalf("second accept error = %v", err)
	}
	if len(m.Friends()) != 1 {
		t.Fatalf("friends = %d after second accept, want 1", len(m.Friends()))
	}
	if _, err := m.Send(ctx, "bob_zen"); !apperrors.HasCode(err, apperrors.CodeFriendAlreadyConnected) {
		t.Fatalf("expected already connected, got %v", err)
	}
}

func TestRejectAndRemove(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, nil, &fakeDirectory{users: []storage.User{alice, bob, carol}})
	toBob, _ := m.Send(ctx, "bob_zen")
	toCarol, _ := m.Send(ctx, "carol_mindful")

	m.Reject(ctx, toCarol.ID)
	m.Reject(ctx, "missing")
	if got := m.Requests(); len(got) != 1 || got[0].ID != toBob.ID {
		t.Fatalf("requests after reject = %+v", got)
	}
	if _, err := m.Accept(ctx, toBob.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	m.Remove(ctx, toBob.ID)
	if len(m.Friends()) != 0 {
		t.Fatal("expected empty friends after remove")
	}
}

func TestCollectionsRoundTripWithInstants(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := localstore.New(localstore.NewMemory(0))
	dir := &fakeDirectory{users: []storage.User{alice, bob, carol}}
	m := newManager(t, store, dir)
	toBob, _ := m.Send(ctx, "bob_zen")
	if _, err := m.Accept(ctx, toBob.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Send(ctx, "carol_mindful"); err != nil {
		t.Fatalf("send: %v", err)
	}

	restored := newManager(t, store, dir)
	if diff := cmp.Diff(m.Friends(), restored.Friends()); diff != "" {
		t.Fatalf("friends mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(m.Requests(), restored.Requests()); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
	if got := restored.Friends()[0].User.JoinedAt; !got.Equal(bob.JoinedAt) {
		t.Fatalf("joinedAt = %v, want %v", got, bob.JoinedAt)
	}
}

func TestSearchSkipsDirectoryForShortQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := &fakeDirectory{users: []storage.User{alice, bob, carol}}
	m := newManager(t, nil, dir)

	for _, q := range []string{"", " ", "b", "  b  "} {
		got, err := m.Search(ctx, q)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		if len(got) != 0 {
			t.Fatalf("search %q returned %d users", q, len(got))
		}
	}
	if len(dir.searches) != 0 {
		t.Fatalf("directory called %d times, want 0", len(dir.searches))
	}

	got, err := m.Search(ctx, "  AL ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected current user excluded, got %+v", got)
	}
	got, err = m.Search(ctx, "zen")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != bob.ID {
		t.Fatalf("search zen = %+v", got)
	}
	if diff := cmp.Diff([]string{"AL", "zen"}, dir.searches); diff != "" {
		t.Fatalf("directory queries mismatch (-want +got):\n%s", diff)
	}
}

func TestResetClearsKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := localstore.New(localstore.NewMemory(0))
	m := newManager(t, store, &fakeDirectory{users: []storage.User{alice, bob}})
	if _, err := m.Send(ctx, "bob_zen"); err != nil {
		t.Fatalf("send: %v", err)
	}
	m.Reset(ctx)

	var raw List
	if store.Load(ctx, localstore.KeyFriendRequests, &raw) {
		t.Fatal("expected requests key cleared")
	}
	if len(m.Requests()) != 0 {
		t.Fatal("expected in-memory requests cleared")
	}
}
