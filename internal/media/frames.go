package media

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
)

const (
	// frameEpsilon keeps requests strictly before end-of-stream
	frameEpsilon = time.Millisecond

	// frameDedupWindow is the spacing below which the previous frame is reused
	frameDedupWindow = time.Second / 30
)

// FrameSession holds at most one open decode handle, bound to one song.
// It is safe for concurrent use.
type FrameSession struct {
	source domain.FrameSource
	logger *slog.Logger

	mu       sync.Mutex
	songID   domain.SongID
	video    string
	duration time.Duration
	handle   domain.FrameHandle

	last   image.Image
	lastAt time.Duration
}

// NewFrameSession creates an unloaded session
func NewFrameSession(source domain.FrameSource, logger *slog.Logger) *FrameSession {
	if logger == nil {
		logger = slog.Default()
	}
	return &FrameSession{source: source, logger: logger}
}

// Load binds the session to song. It is a no-op when the session already
// holds an open handle for the same song and video file.
func (f *FrameSession) Load(song *domain.Song) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handle != nil && f.songID == song.ID && f.video == song.VideoPath {
		f.duration = song.Duration
		return nil
	}
	f.closeLocked()

	handle, err := f.source.Open(song.VideoPath)
	if err != nil {
		return err
	}
	f.handle = handle
	f.songID = song.ID
	f.video = song.VideoPath
	f.duration = song.Duration
	return nil
}

// Unload closes the handle if one is open
func (f *FrameSession) Unload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeLocked()
}

// Loaded returns the bound song, if any
func (f *FrameSession) Loaded() (domain.SongID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.songID, f.handle != nil
}

// FrameAt returns the frame at ts, clamped into [0, duration-ε]. Requests
// within 1/30s of the last served frame return it unchanged. Returns nil
// when nothing is loaded or decoding fails.
func (f *FrameSession) FrameAt(ts time.Duration) image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.handle == nil {
		return nil
	}

	ts = max(ts, 0)
	if f.duration > 0 {
		ts = min(ts, max(0, f.duration-frameEpsilon))
	}

	if f.last != nil && absDuration(ts-f.lastAt) < frameDedupWindow {
		return f.last
	}

	img, err := f.handle.FrameAt(ts)
	if err != nil {
		f.logger.Debug("frame decode failed", "video", f.video, "at", ts, "error", err)
		return f.last
	}
	f.last = img
	f.lastAt = ts
	return img
}

func (f *FrameSession) closeLocked() {
	if f.handle != nil {
		if err := f.handle.Close(); err != nil {
			f.logger.Debug("frame handle close failed", "video", f.video, "error", err)
		}
	}
	f.handle = nil
	f.songID = ""
	f.video = ""
	f.duration = 0
	f.last = nil
	f.lastAt = 0
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
