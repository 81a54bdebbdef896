package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/bloomy/internal/services/notifications/domain"
	"github.com/nats-io/nats.go"
)

// SubjectPrefix is the subject namespace notifications are published under.
const SubjectPrefix = "bloomy.notifications"

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL           string        `env:"NATS_URL"`
	Name          string        `env:"NATS_NAME" envDefault:"bloomy"`
	ReconnectWait time.Duration `env:"NATS_RECONNECT_WAIT" envDefault:"500ms"`
	Timeout       time.Duration `env:"NATS_TIMEOUT" envDefault:"3s"`
}

// ConnectNATS dials the configured servers and keeps reconnecting forever.
func ConnectNATS(cfg NATSConfig) (*nats.Conn, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	nc, err := nats.Connect(url,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSSink publishes notifications as JSON on a per-profile subject.
type NATSSink struct {
	pub     Publisher
	subject string
}

// NewNATSSink builds a sink publishing to SubjectFor(profile).
func NewNATSSink(pub Publisher, profile string) *NATSSink {
	return &NATSSink{pub: pub, subject: SubjectFor(profile)}
}

// Name implements Sink.
func (*NATSSink) Name() string { return "nats" }

// Subject reports where the sink publishes.
func (s *NATSSink) Subject() string { return s.subject }

// Deliver implements Sink.
func (s *NATSSink) Deliver(_ context.Context, n domain.Notification) error {
	if s == nil || s.pub == nil {
		return errors.New("nats publisher is not configured")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set("Bloomy-Kind", string(n.Kind))
	if key := DedupeKey(n); key != "" {
		msg.Header.Set(nats.MsgIdHdr, key)
	}
	if err := s.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", s.subject, err)
	}
	return nil
}

// SubjectFor returns the subject for profile. Characters NATS treats as
// token separators or wildcards are replaced.
func SubjectFor(profile string) string {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		profile = "default"
	}
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, profile)
	return SubjectPrefix + "." + token
}
