package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/reel/internal/domain"
)

// Command factories for async operations. Controller calls that may derive
// assets run here, off the update loop.

// TickCmd schedules the next render tick
func TickCmd(rate int) tea.Cmd {
	if rate <= 0 {
		rate = 30
	}
	return tea.Tick(time.Second/time.Duration(rate), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// WaitForTransitionCmd waits for the next controller snapshot
func WaitForTransitionCmd(ch <-chan domain.PlaybackSnapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return TransitionMsg{Snapshot: snap}
	}
}

// WaitForReloadCmd waits for the library watcher to report a reload
func WaitForReloadCmd(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return WatchClosedMsg{}
		}
		return LibraryReloadedMsg{}
	}
}

// PrepareVisibleCmd derives assets for the visible page in the background
func PrepareVisibleCmd(lib Librarian) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		return PreparedMsg{Count: lib.PrepareVisible(ctx)}
	}
}

// TransportCmd runs a controller action that may block on asset derivation
func TransportCmd(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		return ActionDoneMsg{Action: action, Err: fn(ctx)}
	}
}

// SaveSongCmd imports a new song or applies an edit
func SaveSongCmd(lib Librarian, path, name, artist string, editing domain.SongID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		song, err := lib.ImportOrEdit(ctx, path, name, artist, editing)
		return SongSavedMsg{Song: song, Editing: editing != "", Err: err}
	}
}

// DeleteSongCmd removes a song from the library
func DeleteSongCmd(lib Librarian, song *domain.Song) tea.Cmd {
	return func() tea.Msg {
		return SongDeletedMsg{Title: song.Title(), Err: lib.Delete(song.ID)}
	}
}

// ReloadLibraryCmd re-reads the library document on request
func ReloadLibraryCmd(lib Librarian) tea.Cmd {
	return func() tea.Msg {
		changed, err := lib.Reload()
		if err != nil {
			return ErrMsg{Err: err, Context: "reloading library"}
		}
		if !changed {
			return StatusMsg{Text: "Library is up to date"}
		}
		return LibraryReloadedMsg{Manual: true}
	}
}

// LaunchExternalCmd opens the video in the external player at offset
func LaunchExternalCmd(l Launcher, song *domain.Song, at time.Duration) tea.Cmd {
	return func() tea.Msg {
		if err := l.Launch(song.VideoPath, at); err != nil {
			return ErrMsg{Err: err, Context: "opening external player"}
		}
		return StatusMsg{Text: "Opened " + song.Title() + " in external player"}
	}
}

// ClearStatusCmd clears the footer message after a delay
func ClearStatusCmd(seq int) tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return ClearStatusMsg{Seq: seq}
	})
}
