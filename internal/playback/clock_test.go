package playback

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	now := newFakeClock()
	c := NewClock(now)

	if got := c.Position(); got != 0 {
		t.Fatalf("unanchored position = %v", got)
	}

	c.Start(2*time.Second, 10*time.Second)
	now.Advance(1500 * time.Millisecond)
	if got := c.Position(); got != 3500*time.Millisecond {
		t.Fatalf("running position = %v", got)
	}

	c.Pause()
	c.Pause()
	now.Advance(time.Hour)
	if got := c.Position(); got != 3500*time.Millisecond {
		t.Fatalf("paused position = %v", got)
	}
	if !c.Paused() {
		t.Fatal("expected paused")
	}

	c.Resume()
	c.Resume()
	now.Advance(500 * time.Millisecond)
	if got := c.Position(); got != 4*time.Second {
		t.Fatalf("resumed position = %v", got)
	}

	now.Advance(time.Minute)
	if got := c.Position(); got != 10*time.Second {
		t.Fatalf("position should be capped at the duration, got %v", got)
	}

	c.Reset()
	if c.Anchored() || c.Position() != 0 {
		t.Fatal("reset should drop the anchor")
	}
	c.Resume()
	if c.Anchored() {
		t.Fatal("resume without an anchor should do nothing")
	}
}
