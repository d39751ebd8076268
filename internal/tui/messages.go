package tui

import (
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// TickMsg drives the render loop
type TickMsg time.Time

// TransitionMsg carries a transport snapshot published by the controller
type TransitionMsg struct {
	Snapshot domain.PlaybackSnapshot
}

// LibraryReloadedMsg signals the library document was loaded again, either
// on request or after an external change
type LibraryReloadedMsg struct {
	Manual bool
}

// WatchClosedMsg signals the library watcher stopped
type WatchClosedMsg struct{}

// PreparedMsg signals a background asset preparation pass finished
type PreparedMsg struct {
	Count int
}

// ActionDoneMsg reports the outcome of a transport action
type ActionDoneMsg struct {
	Action string
	Err    error
}

// SongSavedMsg reports the outcome of the add/edit form
type SongSavedMsg struct {
	Song    *domain.Song
	Editing bool
	Err     error
}

// SongDeletedMsg signals a song was removed from the library
type SongDeletedMsg struct {
	Title string
	Err   error
}

// StatusMsg shows a transient message in the footer
type StatusMsg struct {
	Text    string
	IsError bool
}

// ClearStatusMsg clears the transient footer message
type ClearStatusMsg struct {
	Seq int
}
