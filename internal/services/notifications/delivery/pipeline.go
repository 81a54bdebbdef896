// Package delivery displays rendered notifications by fanning them out to
// sinks once the permission gate allows it.
package delivery

import (
	"context"
	"sync"

	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"go.uber.org/zap"
)

// Gate reports whether notifications may be shown.
type Gate interface {
	Allowed() bool
}

// Sink receives every displayed notification.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, n domain.Notification) error
}

// Pipeline is the single display path for notifications.
type Pipeline struct {
	gate   Gate
	logger *zap.Logger

	mu    sync.RWMutex
	sinks []Sink
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSinks appends sinks at construction time.
func WithSinks(sinks ...Sink) Option {
	return func(p *Pipeline) {
		for _, sink := range sinks {
			if sink != nil {
				p.sinks = append(p.sinks, sink)
			}
		}
	}
}

// NewPipeline builds a pipeline guarded by gate.
func NewPipeline(gate Gate, opts ...Option) *Pipeline {
	p := &Pipeline{gate: gate, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Add registers another sink.
func (p *Pipeline) Add(sink Sink) {
	if sink == nil {
		return
	}
	p.mu.Lock()
	p.sinks = append(p.sinks, sink)
	p.mu.Unlock()
}

// Display shows n on every sink. It reports false, touching nothing, when
// the gate does not allow notifications. A failing sink is logged and the
// remaining sinks still run.
func (p *Pipeline) Display(ctx context.Context, n domain.Notification) bool {
	if p == nil || p.gate == nil || !p.gate.Allowed() {
		return false
	}
	p.mu.RLock()
	sinks := append([]Sink(nil), p.sinks...)
	p.mu.RUnlock()

	for _, sink := range sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			p.logger.Warn("notification sink failed",
				zap.String("sink", sink.Name()),
				zap.String("kind", string(n.Kind)),
				zap.Error(err),
			)
		}
	}
	return true
}
