// Package playback implements the transport: the anchor clock, the state
// machine over the audio device, and the shuffle queue.
package playback

import (
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// Clock projects elapsed wall time from an anchor into a playback position.
// The audio device's own clock is never queried.
type Clock struct {
	now domain.Clock

	running  bool // anchored and not paused
	anchored bool
	at       time.Time     // wall time of the anchor
	pos      time.Duration // position at the anchor
	limit    time.Duration // upper bound, 0 for none
}

// NewClock creates a reset clock reading from now
func NewClock(now domain.Clock) *Clock {
	if now == nil {
		now = domain.SystemClock{}
	}
	return &Clock{now: now}
}

// Start anchors at pos and runs. limit caps Position; 0 disables the cap.
func (c *Clock) Start(pos, limit time.Duration) {
	c.anchored = true
	c.running = true
	c.at = c.now.Now()
	c.pos = pos
	c.limit = limit
}

// Pause freezes the position
func (c *Clock) Pause() {
	if !c.running {
		return
	}
	c.pos = c.Position()
	c.at = c.now.Now()
	c.running = false
}

// Resume re-anchors to now at the frozen position
func (c *Clock) Resume() {
	if !c.anchored || c.running {
		return
	}
	c.at = c.now.Now()
	c.running = true
}

// Position returns the current playback position
func (c *Clock) Position() time.Duration {
	if !c.anchored {
		return 0
	}
	pos := c.pos
	if c.running {
		pos += c.now.Now().Sub(c.at)
	}
	if c.limit > 0 && pos > c.limit {
		pos = c.limit
	}
	return max(pos, 0)
}

// Paused reports whether the clock is anchored and frozen
func (c *Clock) Paused() bool { return c.anchored && !c.running }

// Anchored reports whether the clock holds an anchor
func (c *Clock) Anchored() bool { return c.anchored }

// Reset drops the anchor
func (c *Clock) Reset() {
	*c = Clock{now: c.now}
}
