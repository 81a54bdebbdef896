package scheduler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"gopkg.in/yaml.v3"
)

// Slot is one daily reminder time.
type Slot struct {
	Name   string      `yaml:"name" json:"name"`
	Hour   int         `yaml:"hour" json:"hour"`
	Minute int         `yaml:"minute" json:"minute"`
	Kind   domain.Kind `yaml:"kind" json:"kind"`
}

// DefaultSlots are the morning check-in and three mood prompts.
func DefaultSlots() []Slot {
	return []Slot{
		{Name: "daily-checkin", Hour: 9, Kind: domain.KindDailyCheckin},
		{Name: "mood-noon", Hour: 12, Kind: domain.KindMoodReminder},
		{Name: "mood-afternoon", Hour: 16, Kind: domain.KindMoodReminder},
		{Name: "mood-evening", Hour: 20, Kind: domain.KindMoodReminder},
	}
}

// Validate checks the time of day and kind.
func (s Slot) Validate() error {
	if s.Hour < 0 || s.Hour > 23 {
		return fmt.Errorf("slot %q: hour %d out of range", s.Name, s.Hour)
	}
	if s.Minute < 0 || s.Minute > 59 {
		return fmt.Errorf("slot %q: minute %d out of range", s.Name, s.Minute)
	}
	if _, err := domain.ParseKind(string(s.Kind)); err != nil {
		return fmt.Errorf("slot %q: %w", s.Name, err)
	}
	return nil
}

// NextOccurrence returns the next hour:minute in now's location. When now
// is at or past today's target the result is tomorrow's.
func NextOccurrence(now time.Time, hour, minute int) time.Time {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !now.Before(target) {
		target = time.Date(now.Year(), now.Month(), now.Day()+1, hour, minute, 0, 0, now.Location())
	}
	return target
}

type slotFile struct {
	Slots []Slot `yaml:"slots"`
}

// LoadSlots reads a YAML document of the form:
//
//	slots:
//	  - name: daily-checkin
//	    hour: 9
//	    kind: daily-checkin
func LoadSlots(r io.Reader) ([]Slot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read slots: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file slotFile
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("slots file is empty")
		}
		return nil, fmt.Errorf("decode slots: %w", err)
	}
	if len(file.Slots) == 0 {
		return nil, fmt.Errorf("slots file defines no slots")
	}
	seen := make(map[string]bool, len(file.Slots))
	out := make([]Slot, 0, len(file.Slots))
	for i, slot := range file.Slots {
		slot.Name = strings.TrimSpace(slot.Name)
		if slot.Name == "" {
			slot.Name = fmt.Sprintf("%s-%02d%02d", slot.Kind, slot.Hour, slot.Minute)
		}
		kind, err := domain.ParseKind(string(slot.Kind))
		if err != nil {
			return nil, fmt.Errorf("slot %d: %w", i, err)
		}
		slot.Kind = kind
		if err := slot.Validate(); err != nil {
			return nil, err
		}
		if seen[slot.Name] {
			return nil, fmt.Errorf("duplicate slot name %q", slot.Name)
		}
		seen[slot.Name] = true
		out = append(out, slot)
	}
	return out, nil
}

// LoadSlotsFile reads slots from path.
func LoadSlotsFile(path string) ([]Slot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open slots file: %w", err)
	}
	defer f.Close()
	return LoadSlots(f)
}
