package domain

import "time"

// SongState is the persisted per-song record, keyed by cache key
type SongState struct {
	Loop       bool          `json:"loop"`
	PlayCount  int           `json:"play_count"`
	LastPlayed time.Time     `json:"last_played"`
	Duration   time.Duration `json:"duration"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
}

// StateStore persists song state and player settings across runs.
// Stores operate on a local database; all methods return promptly.
type StateStore interface {
	// === Songs ===
	GetSongState(cacheKey string) (SongState, bool)
	SaveSongState(cacheKey string, state SongState) error
	DeleteSongState(cacheKey string)

	// === Settings ===
	GetVolume() (float64, bool)
	SaveVolume(volume float64) error

	Close() error
}
