package tui

import "github.com/mmcdole/reel/internal/domain"

// ChannelObserver adapts domain.PlaybackObserver to a channel for Bubble Tea.
type ChannelObserver struct {
	ch chan domain.PlaybackSnapshot
}

// NewChannelObserver creates a new channel-based observer.
func NewChannelObserver(ch chan domain.PlaybackSnapshot) *ChannelObserver {
	return &ChannelObserver{ch: ch}
}

// OnTransition sends the snapshot to the channel. When the UI has not
// drained the previous one it is replaced, so the latest state always wins.
func (o *ChannelObserver) OnTransition(snap domain.PlaybackSnapshot) {
	for {
		select {
		case o.ch <- snap:
			return
		default:
		}
		select {
		case <-o.ch:
		default:
		}
	}
}
