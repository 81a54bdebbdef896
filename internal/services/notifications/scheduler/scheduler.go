// Package scheduler arms daily reminder timers and fires them through the
// permission gate.
//
// Each slot moves Unscheduled -> Armed -> Fired -> Armed. Nothing is
// persisted: Start computes every next fire from the current time and Stop
// drops all timers.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/louisbranch/bloomy/internal/services/notifications/render"
	"go.uber.org/zap"
)

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// SlotState is a slot's position in its arm/fire cycle.
type SlotState string

const (
	StateUnscheduled SlotState = "unscheduled"
	StateArmed       SlotState = "armed"
	StateFired       SlotState = "fired"
)

// Gate reports whether notifications may be shown.
type Gate interface {
	Allowed() bool
}

// Renderer builds the notification for a kind.
type Renderer interface {
	Render(kind domain.Kind, params render.Params) domain.Notification
}

// Displayer shows a notification and reports whether it was shown.
type Displayer interface {
	Display(ctx context.Context, n domain.Notification) bool
}

// SlotStatus reports one slot.
type SlotStatus struct {
	Slot
	State     SlotState  `json:"state"`
	NextFire  *time.Time `json:"nextFire,omitempty"`
	LastFired *time.Time `json:"lastFired,omitempty"`
	Fires     int        `json:"fires"`
	Shown     int        `json:"shown"`
}

type slotRuntime struct {
	state     SlotState
	timer     *clock.Timer
	next      time.Time
	lastFired time.Time
	fires     int
	shown     int
}

// Scheduler owns one timer per slot.
type Scheduler struct {
	slots    []Slot
	gate     Gate
	renderer Renderer
	display  Displayer
	clock    clock.Clock
	location *time.Location
	logger   *zap.Logger

	// fireMu serializes callbacks so no two fires overlap.
	fireMu sync.Mutex

	mu         sync.Mutex
	running    bool
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
	runtime    []slotRuntime
	inflight   sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock timers are armed on.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLocation sets the zone slot hours are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New builds a scheduler. Nil slots use DefaultSlots.
func New(slots []Slot, gate Gate, renderer Renderer, display Displayer, opts ...Option) *Scheduler {
	if slots == nil {
		slots = DefaultSlots()
	}
	s := &Scheduler{
		slots:    append([]Slot(nil), slots...),
		gate:     gate,
		renderer: renderer,
		display:  display,
		clock:    clock.Real(),
		location: time.Local,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.runtime = make([]slotRuntime, len(s.slots))
	for i := range s.runtime {
		s.runtime[i].state = StateUnscheduled
	}
	return s
}

// Start arms every slot from the current time. The context is handed to
// display calls and cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}
	s.running = true
	s.generation++
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	for i := range s.slots {
		s.armLocked(i)
	}
	s.logger.Info("reminders scheduled", zap.Int("slots", len(s.slots)))
	return nil
}

// Stop cancels every outstanding timer and waits for a fire already in
// progress. No callback runs after Stop returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.generation++
	for i := range s.runtime {
		rt := &s.runtime[i]
		if rt.timer != nil {
			rt.timer.Stop()
			rt.timer = nil
		}
		rt.state = StateUnscheduled
		rt.next = time.Time{}
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.inflight.Wait()
	s.logger.Info("reminders stopped")
}

// Running reports whether Start is in effect.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Slots reports each slot's state and next fire time.
func (s *Scheduler) Slots() []SlotStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SlotStatus, len(s.slots))
	for i, slot := range s.slots {
		rt := s.runtime[i]
		status := SlotStatus{Slot: slot, State: rt.state, Fires: rt.fires, Shown: rt.shown}
		if !rt.next.IsZero() {
			next := rt.next
			status.NextFire = &next
		}
		if !rt.lastFired.IsZero() {
			last := rt.lastFired
			status.LastFired = &last
		}
		out[i] = status
	}
	return out
}

func (s *Scheduler) armLocked(i int) {
	slot := s.slots[i]
	now := s.clock.Now().In(s.location)
	next := NextOccurrence(now, slot.Hour, slot.Minute)
	gen := s.generation
	rt := &s.runtime[i]
	rt.next = next
	rt.state = StateArmed
	rt.timer = s.clock.AfterFunc(next.Sub(now), func() { s.fire(i, gen) })
	s.logger.Debug("reminder armed",
		zap.String("slot", slot.Name),
		zap.Time("next", next),
	)
}

func (s *Scheduler) fire(i int, gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	ctx := s.ctx
	rt := &s.runtime[i]
	rt.state = StateFired
	rt.timer = nil
	rt.fires++
	rt.lastFired = s.clock.Now()
	slot := s.slots[i]
	s.mu.Unlock()
	defer s.inflight.Done()

	shown := s.deliver(ctx, slot)

	s.mu.Lock()
	defer s.mu.Unlock()
	if shown {
		s.runtime[i].shown++
	}
	if s.running && gen == s.generation {
		s.armLocked(i)
	}
}

func (s *Scheduler) deliver(ctx context.Context, slot Slot) bool {
	s.fireMu.Lock()
	defer s.fireMu.Unlock()

	if s.gate == nil || !s.gate.Allowed() {
		s.logger.Debug("reminder skipped without permission", zap.String("slot", slot.Name))
		return false
	}
	if s.renderer == nil || s.display == nil {
		return false
	}
	n := s.renderer.Render(slot.Kind, render.Params{})
	shown := s.display.Display(ctx, n)
	s.logger.Info("reminder fired",
		zap.String("slot", slot.Name),
		zap.String("kind", string(slot.Kind)),
		zap.Bool("shown", shown),
	)
	return shown
}
