// Package onboarding shows the one-time notification opt-in prompt.
package onboarding

import (
	"context"
	"sync"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"github.com/louisbranch/bloomy/internal/platform/timeouts"
	"github.com/louisbranch/bloomy/internal/services/notifications/permission"
	"go.uber.org/zap"
)

// Gate is the part of permission.Gate the prompt drives.
type Gate interface {
	Supported() bool
	Status() permission.State
	Request(ctx context.Context) (permission.State, error)
}

// Prompt asks for notification consent once per origin, a short delay after
// startup.
type Prompt struct {
	gate   Gate
	seen   localstore.Slot[bool]
	clock  clock.Clock
	delay  time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	timer  *clock.Timer
	cancel context.CancelFunc
	armed  bool
	shown  bool
}

// Option configures a Prompt.
type Option func(*Prompt)

// WithClock sets the clock the delay runs on.
func WithClock(c clock.Clock) Option {
	return func(p *Prompt) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithDelay overrides the startup delay.
func WithDelay(d time.Duration) Option {
	return func(p *Prompt) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithLogger sets the prompt logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Prompt) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New builds a prompt that records its seen flag in store.
func New(gate Gate, store *localstore.Store, opts ...Option) *Prompt {
	p := &Prompt{
		gate:   gate,
		seen:   localstore.NewSlot[bool](store, localstore.KeyNotificationPromptSeen),
		clock:  clock.Real(),
		delay:  timeouts.NotificationPrompt,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Eligible reports whether the prompt would be shown: consent is
// supported, still undecided, and the prompt was never seen.
func (p *Prompt) Eligible(ctx context.Context) bool {
	if p == nil || p.gate == nil || !p.gate.Supported() {
		return false
	}
	if p.gate.Status() != permission.StateDefault {
		return false
	}
	seen, _ := p.seen.Load(ctx)
	return !seen
}

// Start arms the delayed prompt and reports whether it did. Calling Start
// while armed is a no-op.
func (p *Prompt) Start(ctx context.Context) bool {
	if !p.Eligible(ctx) {
		return false
	}
	p.mu.Lock()
	if p.armed || p.shown {
		p.mu.Unlock()
		return false
	}
	p.armed = true
	promptCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.mu.Unlock()

	// A zero delay fires inside AfterFunc, so the lock is not held here.
	timer := p.clock.AfterFunc(p.delay, func() { p.fire(promptCtx) })

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.shown:
	case !p.armed || promptCtx.Err() != nil:
		timer.Stop()
	default:
		p.timer = timer
	}
	return true
}

// Stop cancels a pending prompt. A prompt already on screen is left to
// finish.
func (p *Prompt) Stop() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Shown reports whether the prompt has been displayed by this instance.
func (p *Prompt) Shown() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

func (p *Prompt) fire(ctx context.Context) {
	p.mu.Lock()
	if ctx.Err() != nil || p.shown {
		p.mu.Unlock()
		return
	}
	p.shown = true
	p.armed = false
	p.timer = nil
	p.mu.Unlock()

	if !p.Eligible(ctx) {
		return
	}
	state, err := p.gate.Request(ctx)
	if err != nil {
		p.logger.Warn("notification prompt failed", zap.Error(err))
	}
	if err := p.seen.Save(ctx, true); err != nil {
		p.logger.Warn("persist notification prompt flag", zap.Error(err))
	}
	p.logger.Info("notification prompt answered", zap.String("state", string(state)))
}
