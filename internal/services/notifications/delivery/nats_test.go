package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (p *fakePublisher) PublishMsg(msg *nats.Msg) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func TestNATSSinkPublishesPerProfile(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "alice")
	if got := sink.Subject(); got != "bloomy.notifications.alice" {
		t.Fatalf("subject = %q", got)
	}

	n := sampleNotification()
	if err := sink.Deliver(context.Background(), n); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Header.Get("Bloomy-Kind") != "daily-checkin" {
		t.Fatalf("kind header = %q", msg.Header.Get("Bloomy-Kind"))
	}
	if msg.Header.Get(nats.MsgIdHdr) != DedupeKey(n) {
		t.Fatalf("msg id = %q, want %q", msg.Header.Get(nats.MsgIdHdr), DedupeKey(n))
	}
	var decoded map[string]any
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["title"] != n.Title {
		t.Fatalf("title = %v, want %q", decoded["title"], n.Title)
	}
}

func TestNATSSinkWrapsPublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no responders")
	sink := NewNATSSink(&fakePublisher{err: boom}, "alice")
	if err := sink.Deliver(context.Background(), sampleNotification()); !errors.Is(err, boom) {
		t.Fatalf("deliver = %v, want wrapped %v", err, boom)
	}
	if err := NewNATSSink(nil, "alice").Deliver(context.Background(), sampleNotification()); err == nil {
		t.Fatal("expected error without publisher")
	}
}

func TestSubjectFor(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":      "bloomy.notifications.default",
		"bob":   "bloomy.notifications.bob",
		"a.b c": "bloomy.notifications.a_b_c",
		" *> ":  "bloomy.notifications.__",
	}
	for in, want := range cases {
		if got := SubjectFor(in); got != want {
			t.Fatalf("SubjectFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnectNATSRequiresURL(t *testing.T) {
	t.Parallel()

	if _, err := ConnectNATS(NATSConfig{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}
