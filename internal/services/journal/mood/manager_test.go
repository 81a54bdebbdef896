package mood

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
)

func newTestManager(t *testing.T, now time.Time) (*Manager, *clock.FakeClock, *localstore.Store) {
	t.Helper()
	fake := clock.Fake(now)
	store := localstore.New(localstore.NewMemory(0))
	return NewManager(context.Background(), store, WithClock(fake), WithLocation(time.UTC)), fake, store
}

func TestAddOverwritesSameDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, fake, store := newTestManager(t, time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC))

	if _, err := m.Add(ctx, Sad, "rough morning"); err != nil {
		t.Fatalf("add: %v", err)
	}
	fake.Advance(6 * time.Hour)
	if _, err := m.Add(ctx, Happy, "better"); err != nil {
		t.Fatalf("add again: %v", err)
	}

	want := []Entry{{Date: "2024-05-06", Mood: Happy, Note: "better"}}
	if diff := cmp.Diff(want, m.Entries()); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	reloaded := NewManager(ctx, store, WithClock(fake), WithLocation(time.UTC))
	if diff := cmp.Diff(want, reloaded.Entries()); diff != "" {
		t.Fatalf("persisted entries mismatch (-want +got):\n%s", diff)
	}
}

func TestAddAppendsNewDay(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, fake, _ := newTestManager(t, time.Date(2024, 5, 6, 23, 30, 0, 0, time.UTC))

	if _, err := m.Add(ctx, Anxious, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	fake.Advance(time.Hour)
	if _, err := m.Add(ctx, Neutral, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	entries := m.Entries()
	if len(entries) != 2 || entries[0].Date != "2024-05-06" || entries[1].Date != "2024-05-07" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entry, ok := m.EntryFor("2024-05-07"); !ok || entry.Mood != Neutral {
		t.Fatalf("EntryFor = %+v %v", entry, ok)
	}
}

func TestAddUsesConfiguredLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*3600)
	fake := clock.Fake(time.Date(2024, 5, 7, 2, 0, 0, 0, time.UTC))
	m := NewManager(context.Background(), localstore.New(localstore.NewMemory(0)), WithClock(fake), WithLocation(loc))

	entry, err := m.Add(context.Background(), Happy, "")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if entry.Date != "2024-05-06" {
		t.Fatalf("date = %q, want local day 2024-05-06", entry.Date)
	}
}

func TestAddRejectsUnknownMood(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t, time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC))
	if _, err := m.Add(context.Background(), Mood("ecstatic"), ""); !apperrors.HasCode(err, apperrors.CodeMoodInvalid) {
		t.Fatalf("expected mood invalid, got %v", err)
	}
	if len(m.Entries()) != 0 {
		t.Fatal("invalid mood should not be stored")
	}
}

func TestAddSurvivesStorageFailure(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2024, 5, 6, 8, 0, 0, 0, time.UTC))
	m := NewManager(context.Background(), localstore.New(nil), WithClock(fake))
	if _, err := m.Add(context.Background(), Happy, ""); err != nil {
		t.Fatalf("add should swallow storage failure: %v", err)
	}
	if len(m.Entries()) != 1 {
		t.Fatal("in-memory state should stay authoritative")
	}
}

func TestCurrentMoodDefaultsToNeutral(t *testing.T) {
	t.Parallel()

	m, _, _ := newTestManager(t, time.Now())
	if m.CurrentMood() != Neutral {
		t.Fatalf("current mood = %s, want neutral", m.CurrentMood())
	}
	if err := m.SetCurrentMood("Stressed"); err != nil {
		t.Fatalf("set current: %v", err)
	}
	if m.CurrentMood() != Stressed {
		t.Fatalf("current mood = %s, want stressed", m.CurrentMood())
	}
	if err := m.SetCurrentMood("meh"); err == nil {
		t.Fatal("expected invalid mood error")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, fake, _ := newTestManager(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	if _, ok := m.Stats(); ok {
		t.Fatal("empty calendar should have no stats")
	}

	for _, mood := range []Mood{Happy, Sad, Happy, Sad, Lonely} {
		if _, err := m.Add(ctx, mood, ""); err != nil {
			t.Fatalf("add: %v", err)
		}
		fake.Advance(24 * time.Hour)
	}

	stats, ok := m.Stats()
	if !ok {
		t.Fatal("expected stats")
	}
	if stats.Total != 5 || stats.Counts[Happy] != 2 || stats.Counts[Sad] != 2 || stats.Counts[Lonely] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	// Happy and Sad tie; the later mood in display order wins.
	if stats.MostCommon != Sad {
		t.Fatalf("most common = %s, want sad", stats.MostCommon)
	}
}

func TestMonthIsMondayFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m, _, _ := newTestManager(t, time.Date(2024, 9, 15, 12, 0, 0, 0, time.UTC))
	if _, err := m.Add(ctx, Stressed, "deadline"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// September 2024 starts on a Sunday.
	grid := m.Month(2024, time.September)
	if grid.Leading != 6 {
		t.Fatalf("leading = %d, want 6", grid.Leading)
	}
	if len(grid.Days) != 30 {
		t.Fatalf("days = %d, want 30", len(grid.Days))
	}
	cell := grid.Days[14]
	if cell.Date != "2024-09-15" || cell.Mood != Stressed || cell.Note != "deadline" {
		t.Fatalf("unexpected cell %+v", cell)
	}

	// July 2024 starts on a Monday.
	if got := m.Month(2024, time.July).Leading; got != 0 {
		t.Fatalf("july leading = %d, want 0", got)
	}
	if got := len(m.Month(2024, time.February).Days); got != 29 {
		t.Fatalf("leap february days = %d, want 29", got)
	}
}

func TestRehydrateCollapsesDuplicateDays(t *testing.T) {
	t.Parallel()

	entries := Entries{
		{Date: "2024-01-01", Mood: Happy},
		{Date: "not-a-day", Mood: Sad},
		{Date: "2024-01-02", Mood: "bogus"},
		{Date: "2024-01-01", Mood: Lonely, Note: "later"},
	}
	entries.Rehydrate()

	want := Entries{{Date: "2024-01-01", Mood: Lonely, Note: "later"}}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("rehydrate mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	if got, err := ParseDay(" 2024-02-29 "); err != nil || got != "2024-02-29" {
		t.Fatalf("ParseDay = %q %v", got, err)
	}
	if _, err := ParseDay("2023-02-29"); !apperrors.HasCode(err, apperrors.CodeDayInvalid) {
		t.Fatalf("expected day invalid, got %v", err)
	}
}
