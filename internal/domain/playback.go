package domain

import "time"

// PlaybackState is the transport state
type PlaybackState string

const (
	StateStopped PlaybackState = "stopped"
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
)

// PlaybackSnapshot is a consistent read of transport state for rendering
type PlaybackSnapshot struct {
	State      PlaybackState
	Current    *Song // Copy of the current song, nil when stopped
	Position   time.Duration
	Shuffle    bool
	Queue      []SongID // Remaining shuffle order
	Fullscreen bool
	Volume     float64
	Generation uint64 // Bumped on every device load or stop
}

// Progress returns position/duration in [0,1]
func (s PlaybackSnapshot) Progress() float64 {
	if s.Current == nil || s.Current.Duration <= 0 {
		return 0
	}
	p := float64(s.Position) / float64(s.Current.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// PlaybackObserver is notified after every transport transition.
// Notifications may arrive from the audio device goroutine.
type PlaybackObserver interface {
	OnTransition(snapshot PlaybackSnapshot)
}
