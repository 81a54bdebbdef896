// Package emotion keeps the emotion check-in journal.
package emotion

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
	"github.com/louisbranch/bloomy/internal/services/journal/catalog"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultRecentLimit is the Recent page size when none is given.
const DefaultRecentLimit = 10

var tracer = platformotel.Tracer("journal/emotion")

// Entry is one check-in. The emotion is stored as the full catalog record.
type Entry struct {
	ID        string          `json:"id"`
	Emotion   catalog.Emotion `json:"emotion"`
	Timestamp time.Time       `json:"timestamp"`
	Note      string          `json:"note,omitempty"`
	Image     string          `json:"image,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
}

// Entries is the persisted journal, newest first.
type Entries []Entry

// Rehydrate drops rows without an id or timestamp and restores newest-first
// order by instant.
func (e *Entries) Rehydrate() {
	*e = slices.DeleteFunc(*e, func(entry Entry) bool {
		return strings.TrimSpace(entry.ID) == "" || entry.Timestamp.IsZero()
	})
	slices.SortStableFunc(*e, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}

// Patch lists the fields Update may change. Nil fields are left alone.
type Patch struct {
	EmotionID *string
	Note      *string
	Image     *string
	Tags      *[]string
}

// Manager owns the journal and writes it through to the local store.
type Manager struct {
	mu       sync.Mutex
	entries  Entries
	slot     localstore.Slot[Entries]
	clock    clock.Clock
	location *time.Location
	newID    func() (string, error)
	logger   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used to stamp entries.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLocation sets the zone EntriesForDate compares calendar days in.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.location = loc
		}
	}
}

// WithIDGenerator overrides entry id generation.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewManager loads the persisted journal from store.
func NewManager(ctx context.Context, store *localstore.Store, opts ...Option) *Manager {
	m := &Manager{
		slot:     localstore.NewSlot[Entries](store, localstore.KeyEmotionEntries),
		clock:    clock.Real(),
		location: time.Local,
		newID:    id.NewID,
		logger:   zap.NewNop(),
	}
	if store != nil {
		m.logger = store.Logger().Named("emotion")
	}
	for _, opt := range opts {
		opt(m)
	}
	if loaded, ok := m.slot.Load(ctx); ok {
		m.entries = loaded
	}
	return m
}

func resolve(emotionID string) (catalog.Emotion, error) {
	emotion, ok := catalog.ByID(emotionID)
	if !ok {
		return catalog.Emotion{}, apperrors.WithMetadata(apperrors.CodeEmotionInvalid, "unknown emotion", map[string]string{"emotion": emotionID})
	}
	return emotion, nil
}

// Add prepends a check-in stamped now.
func (m *Manager) Add(ctx context.Context, emotionID, note, image string, tags []string) (Entry, error) {
	ctx, span := tracer.Start(ctx, "emotion.Add")
	defer span.End()

	emotion, err := resolve(emotionID)
	if err != nil {
		return Entry{}, err
	}
	entryID, err := m.newID()
	if err != nil {
		return Entry{}, err
	}
	span.SetAttributes(attribute.String("emotion.id", emotion.ID))
	entry := Entry{
		ID:        entryID,
		Emotion:   emotion,
		Timestamp: m.clock.Now(),
		Note:      note,
		Image:     image,
		Tags:      slices.Clone(tags),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(Entries{entry}, m.entries...)
	_ = m.slot.Save(ctx, m.entries)
	return entry, nil
}

// Update merges patch into the entry with id.
func (m *Manager) Update(ctx context.Context, entryID string, patch Patch) (Entry, error) {
	var emotion *catalog.Emotion
	if patch.EmotionID != nil {
		resolved, err := resolve(*patch.EmotionID)
		if err != nil {
			return Entry{}, err
		}
		emotion = &resolved
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	at := slices.IndexFunc(m.entries, func(e Entry) bool { return e.ID == entryID })
	if at < 0 {
		return Entry{}, apperrors.WithMetadata(apperrors.CodeEntryNotFound, "emotion entry not found", map[string]string{"id": entryID})
	}
	next := slices.Clone(m.entries)
	entry := next[at]
	if emotion != nil {
		entry.Emotion = *emotion
	}
	if patch.Note != nil {
		entry.Note = *patch.Note
	}
	if patch.Image != nil {
		entry.Image = *patch.Image
	}
	if patch.Tags != nil {
		entry.Tags = slices.Clone(*patch.Tags)
	}
	next[at] = entry
	m.entries = next
	_ = m.slot.Save(ctx, m.entries)
	return entry, nil
}

// Delete removes the entry with id.
func (m *Manager) Delete(ctx context.Context, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	at := slices.IndexFunc(m.entries, func(e Entry) bool { return e.ID == entryID })
	if at < 0 {
		return apperrors.WithMetadata(apperrors.CodeEntryNotFound, "emotion entry not found", map[string]string{"id": entryID})
	}
	m.entries = slices.Delete(slices.Clone(m.entries), at, at+1)
	_ = m.slot.Save(ctx, m.entries)
	return nil
}

// Entries returns the journal, newest first.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries)
}

// EntriesForDate returns the entries on the same calendar day as date.
func (m *Manager) EntriesForDate(date time.Time) []Entry {
	y, mo, d := date.In(m.location).Date()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, entry := range m.entries {
		ey, emo, ed := entry.Timestamp.In(m.location).Date()
		if ey == y && emo == mo && ed == d {
			out = append(out, entry)
		}
	}
	return out
}

// EntriesForDay is EntriesForDate for a YYYY-MM-DD day in the manager's
// zone.
func (m *Manager) EntriesForDay(day string) ([]Entry, error) {
	date, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(day), m.location)
	if err != nil {
		return nil, apperrors.WithMetadata(apperrors.CodeDayInvalid, "invalid day", map[string]string{"day": day})
	}
	return m.EntriesForDate(date), nil
}

// Recent returns up to limit newest entries. limit <= 0 uses
// DefaultRecentLimit.
func (m *Manager) Recent(limit int) []Entry {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries[:min(limit, len(m.entries))])
}
