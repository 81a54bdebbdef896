package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"go.uber.org/zap"
)

// LogSink writes each notification to a zap logger.
type LogSink struct {
	Logger *zap.Logger
}

// Name implements Sink.
func (LogSink) Name() string { return "log" }

// Deliver implements Sink.
func (s LogSink) Deliver(_ context.Context, n domain.Notification) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("notification",
		zap.String("kind", string(n.Kind)),
		zap.String("tag", n.Tag),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Int("actions", len(n.Actions)),
	)
	return nil
}

// Recorder is the part of domain.Inbox the inbox sink needs.
type Recorder interface {
	Record(ctx context.Context, profile string, n domain.Notification, dedupeKey string) (domain.InboxItem, error)
}

// InboxSink records notifications in a profile inbox.
type InboxSink struct {
	Inbox   Recorder
	Profile string
}

// Name implements Sink.
func (InboxSink) Name() string { return "inbox" }

// Deliver implements Sink.
func (s InboxSink) Deliver(ctx context.Context, n domain.Notification) error {
	if s.Inbox == nil {
		return errors.New("inbox is not configured")
	}
	if _, err := s.Inbox.Record(ctx, s.Profile, n, DedupeKey(n)); err != nil {
		return fmt.Errorf("record inbox item: %w", err)
	}
	return nil
}

// DedupeKey identifies one display of a notification: a scheduler retry of
// the same fire lands on the same inbox row.
func DedupeKey(n domain.Notification) string {
	tag := strings.TrimSpace(n.Tag)
	if tag == "" {
		tag = string(n.Kind)
	}
	if n.CreatedAt.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", tag, n.CreatedAt.UnixMilli())
}
