// Package mood tracks one mood per calendar day.
package mood

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
)

// Mood is a coarse daily feeling.
type Mood string

const (
	Happy    Mood = "happy"
	Sad      Mood = "sad"
	Anxious  Mood = "anxious"
	Stressed Mood = "stressed"
	Lonely   Mood = "lonely"
	Neutral  Mood = "neutral"
)

// Moods lists every mood in display order. Stats ties resolve toward the
// later mood in this order.
var Moods = []Mood{Happy, Sad, Anxious, Stressed, Lonely, Neutral}

// Parse validates a mood name.
func Parse(value string) (Mood, error) {
	candidate := Mood(strings.ToLower(strings.TrimSpace(value)))
	for _, m := range Moods {
		if m == candidate {
			return m, nil
		}
	}
	return "", apperrors.WithMetadata(apperrors.CodeMoodInvalid, "unknown mood", map[string]string{"mood": value})
}

// Emoji returns the face shown for m.
func (m Mood) Emoji() string {
	switch m {
	case Happy:
		return "😊"
	case Sad:
		return "😔"
	case Anxious:
		return "😰"
	case Stressed:
		return "😓"
	case Lonely:
		return "😞"
	default:
		return "😐"
	}
}

const dayLayout = "2006-01-02"

// Day formats t as a calendar-day key.
func Day(t time.Time) string {
	return t.Format(dayLayout)
}

// ParseDay validates a YYYY-MM-DD key.
func ParseDay(value string) (string, error) {
	value = strings.TrimSpace(value)
	parsed, err := time.Parse(dayLayout, value)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeDayInvalid, "parse day", err)
	}
	return parsed.Format(dayLayout), nil
}

// Entry is the mood recorded for one day.
type Entry struct {
	Date string `json:"date"`
	Mood Mood   `json:"mood"`
	Note string `json:"note,omitempty"`
}

// Entries is the persisted collection, in insertion order.
type Entries []Entry

// Rehydrate drops malformed rows and collapses duplicate days, keeping the
// last write for each day at its first position.
func (e *Entries) Rehydrate() {
	out := make(Entries, 0, len(*e))
	index := make(map[string]int, len(*e))
	for _, entry := range *e {
		day, err := ParseDay(entry.Date)
		if err != nil {
			continue
		}
		m, err := Parse(string(entry.Mood))
		if err != nil {
			continue
		}
		entry.Date, entry.Mood = day, m
		if at, ok := index[day]; ok {
			out[at] = entry
			continue
		}
		index[day] = len(out)
		out = append(out, entry)
	}
	*e = out
}
