// Package permission gates every notification display on user consent.
package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/louisbranch/bloomy/internal/platform/localstore"
	"go.uber.org/zap"
)

// State is the three-valued consent flag.
type State string

const (
	StateDefault State = "default"
	StateGranted State = "granted"
	StateDenied  State = "denied"
)

// ParseState normalizes a state token.
func ParseState(raw string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(raw))) {
	case StateGranted:
		return StateGranted, nil
	case StateDenied:
		return StateDenied, nil
	case StateDefault, "":
		return StateDefault, nil
	default:
		return "", fmt.Errorf("unknown permission state %q", raw)
	}
}

// Consent is the platform mechanism that asks the user.
type Consent interface {
	// Supported reports whether the mechanism can ask at all.
	Supported() bool
	// Ask prompts once and returns the user's answer. A dismissed prompt
	// returns StateDefault.
	Ask(ctx context.Context) (State, error)
}

// Snapshot is the gate state as reported to callers.
type Snapshot struct {
	State     State `json:"state"`
	Supported bool  `json:"supported"`
	Granted   bool  `json:"granted"`
	Denied    bool  `json:"denied"`
	Default   bool  `json:"default"`
}

// Gate caches the consent decision for the session and, when a store is
// attached, across restarts.
type Gate struct {
	mu      sync.Mutex
	consent Consent
	state   State
	slot    *localstore.Slot[State]
	logger  *zap.Logger
	onGrant []func(context.Context)
}

// Option configures a Gate.
type Option func(*Gate)

// WithStore persists decided states under the notification permission key.
func WithStore(store *localstore.Store) Option {
	return func(g *Gate) {
		if store != nil {
			slot := localstore.NewSlot[State](store, localstore.KeyNotificationPermission)
			g.slot = &slot
		}
	}
}

// WithLogger sets the gate logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGate builds a gate over consent. A nil consent is unsupported.
func NewGate(ctx context.Context, consent Consent, opts ...Option) *Gate {
	g := &Gate{consent: consent, state: StateDefault, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	if g.slot != nil {
		if saved, ok := g.slot.Load(ctx); ok {
			if parsed, err := ParseState(string(saved)); err == nil {
				g.state = parsed
			}
		}
	}
	return g
}

// OnGrant registers fn to run after a Request moves the gate to granted.
func (g *Gate) OnGrant(fn func(context.Context)) {
	if fn == nil {
		return
	}
	g.mu.Lock()
	g.onGrant = append(g.onGrant, fn)
	g.mu.Unlock()
}

// Supported reports whether the consent mechanism exists.
func (g *Gate) Supported() bool {
	return g != nil && g.consent != nil && g.consent.Supported()
}

// Status returns the cached state. Unsupported gates report denied.
func (g *Gate) Status() State {
	if !g.Supported() {
		return StateDenied
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Snapshot returns the state with its boolean views.
func (g *Gate) Snapshot() Snapshot {
	state := g.Status()
	return Snapshot{
		State:     state,
		Supported: g.Supported(),
		Granted:   state == StateGranted,
		Denied:    state == StateDenied,
		Default:   state == StateDefault,
	}
}

// Allowed is true only when consent was granted.
func (g *Gate) Allowed() bool {
	return g.Status() == StateGranted
}

// Request asks the user only while the state is default. Granted and denied
// are terminal for the gate and are returned without prompting.
func (g *Gate) Request(ctx context.Context) (State, error) {
	if !g.Supported() {
		return StateDenied, nil
	}
	g.mu.Lock()
	if g.state != StateDefault {
		state := g.state
		g.mu.Unlock()
		return state, nil
	}
	g.mu.Unlock()

	answer, err := g.consent.Ask(ctx)
	if err != nil {
		g.logger.Warn("notification consent prompt failed", zap.Error(err))
		return StateDefault, err
	}

	g.mu.Lock()
	if g.state != StateDefault {
		// Another request already decided.
		state := g.state
		g.mu.Unlock()
		return state, nil
	}
	g.state = answer
	hooks := append([]func(context.Context){}, g.onGrant...)
	g.mu.Unlock()

	if answer == StateDefault {
		return answer, nil
	}
	if g.slot != nil {
		_ = g.slot.Save(ctx, answer)
	}
	g.logger.Info("notification permission decided", zap.String("state", string(answer)))
	if answer == StateGranted {
		for _, hook := range hooks {
			hook(ctx)
		}
	}
	return answer, nil
}
