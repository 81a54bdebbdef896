package mood

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	platformotel "github.com/louisbranch/bloomy/internal/platform/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = platformotel.Tracer("journal/mood")

// Manager owns the mood calendar and writes it through to the local store.
type Manager struct {
	mu       sync.Mutex
	entries  Entries
	current  Mood
	slot     localstore.Slot[Entries]
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to pick today's day.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLocation sets the zone calendar days are cut in.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.location = loc
		}
	}
}

// NewManager loads persisted entries from store.
func NewManager(ctx context.Context, store *localstore.Store, opts ...Option) *Manager {
	m := &Manager{
		current:  Neutral,
		slot:     localstore.NewSlot[Entries](store, localstore.KeyMoodEntries),
		clock:    clock.Real(),
		location: time.Local,
		logger:   zap.NewNop(),
	}
	if store != nil {
		m.logger = store.Logger().Named("mood")
	}
	for _, opt := range opts {
		opt(m)
	}
	if loaded, ok := m.slot.Load(ctx); ok {
		m.entries = loaded
	}
	return m
}

// Today returns the calendar-day key for now.
func (m *Manager) Today() string {
	return Day(m.clock.Now().In(m.location))
}

// Add records mood for today, replacing any earlier entry for the same day.
func (m *Manager) Add(ctx context.Context, mood Mood, note string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "mood.Add")
	defer span.End()

	mood, err := Parse(string(mood))
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Date: m.Today(), Mood: mood, Note: note}
	span.SetAttributes(attribute.String("mood.day", entry.Date), attribute.String("mood.value", string(mood)))

	m.mu.Lock()
	defer m.mu.Unlock()
	next := slices.Clone(m.entries)
	if at := slices.IndexFunc(next, func(e Entry) bool { return e.Date == entry.Date }); at >= 0 {
		next[at] = entry
	} else {
		next = append(next, entry)
	}
	m.entries = next
	_ = m.slot.Save(ctx, m.entries)
	return entry, nil
}

// Entries returns every entry in insertion order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// EntryFor returns the entry for day.
func (m *Manager) EntryFor(day string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		if entry.Date == day {
			return entry, true
		}
	}
	return Entry{}, false
}

// CurrentMood returns the session mood. It is never persisted.
func (m *Manager) CurrentMood() Mood {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SetCurrentMood updates the session mood.
func (m *Manager) SetCurrentMood(mood Mood) error {
	mood, err := Parse(string(mood))
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.current = mood
	m.mu.Unlock()
	return nil
}

// Stats summarizes the calendar.
type Stats struct {
	Counts     map[Mood]int `json:"counts"`
	Total      int          `json:"total"`
	MostCommon Mood         `json:"mostCommon"`
}

// Stats reports per-mood counts. ok is false when nothing has been recorded.
func (m *Manager) Stats() (Stats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return Stats{}, false
	}
	stats := Stats{Counts: make(map[Mood]int, len(Moods)), Total: len(m.entries)}
	for _, entry := range m.entries {
		stats.Counts[entry.Mood]++
	}
	stats.MostCommon = Moods[0]
	for _, candidate := range Moods[1:] {
		if stats.Counts[candidate] >= stats.Counts[stats.MostCommon] {
			stats.MostCommon = candidate
		}
	}
	return stats, true
}

// CalendarDay is one cell of a month grid.
type CalendarDay struct {
	Day  int    `json:"day"`
	Date string `json:"date"`
	Mood Mood   `json:"mood,omitempty"`
	Note string `json:"note,omitempty"`
}

// Month is a Monday-first month grid.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	// Leading counts the blank cells before the first of the month.
	Leading int           `json:"leading"`
	Days    []CalendarDay `json:"days"`
}

// Month builds the calendar grid for year and month.
func (m *Manager) Month(year int, month time.Month) Month {
	first := time.Date(year, month, 1, 0, 0, 0, 0, m.location)
	daysIn := first.AddDate(0, 1, -1).Day()

	m.mu.Lock()
	byDay := make(map[string]Entry, len(m.entries))
	for _, entry := range m.entries {
		byDay[entry.Date] = entry
	}
	m.mu.Unlock()

	grid := Month{
		Year:    first.Year(),
		Month:   first.Month(),
		Leading: (int(first.Weekday()) + 6) % 7,
		Days:    make([]CalendarDay, 0, daysIn),
	}
	for day := 1; day <= daysIn; day++ {
		date := Day(first.AddDate(0, 0, day-1))
		cell := CalendarDay{Day: day, Date: date}
		if entry, ok := byDay[date]; ok {
			cell.Mood = entry.Mood
			cell.Note = entry.Note
		}
		grid.Days = append(grid.Days, cell)
	}
	return grid
}
