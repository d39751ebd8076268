package domain

import (
	"fmt"
	"strings"
	"time"
)

// SongID is the stable identity of a library entry. It survives edits, so
// secondary collections can hold IDs instead of song pointers.
type SongID string

// Song represents a library entry backed by a local video file
type Song struct {
	ID     SongID // Stable identifier, preserved across edits
	Name   string // Display name
	Artist string // Display artist

	VideoPath     string // Absolute, resolved source video location
	CacheKey      string // Slug used to name derived artifacts
	ThumbnailPath string // <cache>/<key>.jpg
	AudioPath     string // <cache>/<key>.ogg

	Loop bool // Replay on natural end of track

	// Measured media info, valid once AssetsReady is set
	Duration    time.Duration
	Width       int
	Height      int
	AssetsReady bool
}

// MediaInfo is what probing a source video yields
type MediaInfo struct {
	Duration time.Duration
	Width    int
	Height   int
	HasAudio bool
}

// ApplyMedia records measured media info on the song and marks its
// derived artifacts as materialized.
func (s *Song) ApplyMedia(info MediaInfo) {
	s.Duration = info.Duration
	s.Width = info.Width
	s.Height = info.Height
	s.AssetsReady = true
}

// SearchKey returns the case-folded name used for query matching
func (s *Song) SearchKey() string {
	return strings.ToLower(s.Name)
}

// Title returns "Artist - Name" for display
func (s *Song) Title() string {
	if s.Artist == "" {
		return s.Name
	}
	return s.Artist + " - " + s.Name
}

// FormattedDuration returns the duration as mm:ss
func (s *Song) FormattedDuration() string {
	return FormatClock(s.Duration)
}

// Resolution returns a human-readable resolution string based on frame height
func (s *Song) Resolution() string {
	switch {
	case s.Height >= 2160:
		return "4K"
	case s.Height >= 1080:
		return "1080p"
	case s.Height >= 720:
		return "720p"
	case s.Height >= 480:
		return "480p"
	case s.Height > 0:
		return fmt.Sprintf("%dp", s.Height)
	default:
		return ""
	}
}

// Clone returns a copy of the song
func (s *Song) Clone() *Song {
	c := *s
	return &c
}

// FormatClock renders d as mm:ss
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
