package account

import (
	"testing"
	"time"

	"github.com/louisbranch/bloomy/internal/platform/clock"
	apperrors "github.com/louisbranch/bloomy/internal/platform/errors"
	"github.com/louisbranch/bloomy/internal/services/social/storage"
)

func TestNewSessionsRequiresLongSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewSessions([]byte("short"), time.Hour, nil); err == nil {
		t.Fatal("expected short secret error")
	}
}

func TestSessionExpiresOnInjectedClock(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sessions, err := NewSessions(testSecret, time.Hour, fake)
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	token, err := sessions.Issue(storage.User{ID: "1", Username: "alice_bloom"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fake.Advance(59 * time.Minute)
	if _, err := sessions.Verify(token); err != nil {
		t.Fatalf("verify before expiry: %v", err)
	}
	fake.Advance(2 * time.Minute)
	if _, err := sessions.Verify(token); !apperrors.HasCode(err, apperrors.CodeSessionInvalid) {
		t.Fatalf("expected session invalid after expiry, got %v", err)
	}
}

func TestSessionRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	fake := clock.Fake(time.Now())
	issuer, _ := NewSessions([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, fake)
	verifier, _ := NewSessions(testSecret, time.Hour, fake)
	token, err := issuer.Issue(storage.User{ID: "1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); !apperrors.HasCode(err, apperrors.CodeSessionInvalid) {
		t.Fatalf("expected session invalid, got %v", err)
	}
	if _, err := verifier.Verify(" "); !apperrors.HasCode(err, apperrors.CodeNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
}
