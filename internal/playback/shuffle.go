package playback

import (
	"context"

	"github.com/samber/lo"
)

// StartShuffle plays a random permutation of the filtered view: the head
// starts immediately and the tail becomes the shuffle queue. The filtered
// view itself keeps library order. No-op when nothing matches the query.
func (c *Controller) StartShuffle(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	order := lo.Shuffle(c.index.Filtered())
	if len(order) == 0 {
		return nil
	}

	head, err := c.song(order[0])
	if err != nil {
		return err
	}
	c.shuffle = true
	c.queue = order[1:]
	if err := c.playLocked(ctx, head); err != nil {
		c.clearShuffle()
		return err
	}
	c.logger.Info("shuffle started", "songs", len(order))
	return nil
}

// Shuffling reports whether a shuffle is in progress
func (c *Controller) Shuffling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuffle
}
