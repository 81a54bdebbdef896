package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)

func TestFakeNowMovesOnlyOnAdvance(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(90 * time.Second)
	if got, want := c.Now(), epoch.Add(90*time.Second); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeAfterFuncFiresAtDeadline(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	var firedAt time.Time
	c.AfterFunc(time.Hour, func() { firedAt = c.Now() })

	c.Advance(59 * time.Minute)
	if !firedAt.IsZero() {
		t.Fatal("expected callback to wait for its deadline")
	}
	c.Advance(2 * time.Hour)
	if want := epoch.Add(time.Hour); !firedAt.Equal(want) {
		t.Fatalf("callback observed %v, want %v", firedAt, want)
	}
	if got := c.Now(); !got.Equal(epoch.Add(2*time.Hour + 59*time.Minute)) {
		t.Fatalf("Now() = %v after advance", got)
	}
}

func TestFakeAfterFuncRearmFiresWithinSameAdvance(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	fires := 0
	var arm func()
	arm = func() {
		c.AfterFunc(24*time.Hour, func() {
			fires++
			arm()
		})
	}
	arm()

	c.Advance(72 * time.Hour)
	if fires != 3 {
		t.Fatalf("fires = %d, want 3", fires)
	}
	if got := c.PendingCount(); got != 1 {
		t.Fatalf("pending = %d, want 1 re-armed timer", got)
	}
}

func TestFakeStopPreventsCallback(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Minute, func() { fired = true })
	if !timer.Stop() {
		t.Fatal("expected Stop to report an active timer")
	}
	if timer.Stop() {
		t.Fatal("expected second Stop to report false")
	}
	c.Advance(time.Hour)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if got := c.PendingCount(); got != 0 {
		t.Fatalf("pending = %d, want 0", got)
	}
}

func TestFakeAfterDeliversOnAdvance(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	ch := c.After(5 * time.Second)
	select {
	case <-ch:
		t.Fatal("channel ready before advance")
	default:
	}
	c.Advance(5 * time.Second)
	select {
	case got := <-ch:
		if want := epoch.Add(5 * time.Second); !got.Equal(want) {
			t.Fatalf("received %v, want %v", got, want)
		}
	default:
		t.Fatal("channel not ready after advance")
	}
}

func TestFakeWaitForTimersUnblocksOnRegistration(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Second)
	<-done
}

func TestFakeSetBackwardsOnlyMovesNow(t *testing.T) {
	t.Parallel()

	c := Fake(epoch)
	fired := false
	c.AfterFunc(time.Minute, func() { fired = true })
	c.Set(epoch.Add(-time.Hour))
	if fired {
		t.Fatal("moving backwards fired a timer")
	}
	if got := c.Now(); !got.Equal(epoch.Add(-time.Hour)) {
		t.Fatalf("Now() = %v", got)
	}
}
