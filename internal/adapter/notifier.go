package adapter

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/mmcdole/reel/internal/domain"
)

// Notifier posts a desktop notification whenever a different song starts.
// It implements domain.PlaybackObserver.
type Notifier struct {
	logger *slog.Logger
	send   func(title, message string) error

	mu   sync.Mutex
	last domain.SongID
}

// NewNotifier creates a notifier backed by the system notification service
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	beeep.AppName = "reel"
	return &Notifier{
		logger: logger,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// OnTransition notifies on the first transition of each newly current song.
// Pauses, seeks and loop restarts of the same song are silent.
func (n *Notifier) OnTransition(snap domain.PlaybackSnapshot) {
	n.mu.Lock()
	if snap.Current == nil {
		n.last = ""
		n.mu.Unlock()
		return
	}
	if snap.Current.ID == n.last {
		n.mu.Unlock()
		return
	}
	n.last = snap.Current.ID
	n.mu.Unlock()

	title, artist := snap.Current.Name, snap.Current.Artist
	// Notification backends may block on D-Bus; never hold up the transport.
	go func() {
		if err := n.send("Now playing", title+"\n"+artist); err != nil {
			n.logger.Warn("desktop notification failed", "error", err)
		}
	}()
}
