// Package media derives and caches per-song artifacts (thumbnail and audio
// track) and serves timestamp-addressed video frames for the preview.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/spf13/afero"
)

const (
	// thumbnailGuard keeps the representative frame away from end-of-stream
	thumbnailGuard = 40 * time.Millisecond

	// fallbackDuration replaces a zero or negative measured duration
	fallbackDuration = time.Second
)

// Assets materializes derived artifacts for songs.
//
// Derivation runs at most once per cache key per process. Concurrent calls
// for the same key wait for each other; different keys proceed in parallel.
// Assets never mutates the song; callers apply the returned MediaInfo.
type Assets struct {
	fs      afero.Fs
	decoder domain.Decoder
	logger  *slog.Logger

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	prepared map[string]domain.MediaInfo
}

// NewAssets creates an asset cache writing through fs
func NewAssets(fs afero.Fs, decoder domain.Decoder, logger *slog.Logger) *Assets {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assets{
		fs:       fs,
		decoder:  decoder,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
		prepared: make(map[string]domain.MediaInfo),
	}
}

// Ensure makes sure the song's thumbnail and audio track exist and returns
// the measured media info.
//
// When both artifacts exist and the key was prepared earlier in this
// process, Ensure returns the remembered info without touching the
// decoder. The first call per process always rewrites the thumbnail.
func (a *Assets) Ensure(ctx context.Context, song *domain.Song) (domain.MediaInfo, error) {
	key := song.CacheKey
	lock := a.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	info, prepared := a.lookup(key)
	if prepared && a.exists(song.ThumbnailPath) && a.exists(song.AudioPath) && info.Duration > 0 {
		return info, nil
	}

	if err := a.fs.MkdirAll(filepath.Dir(song.AudioPath), 0755); err != nil {
		return domain.MediaInfo{}, fmt.Errorf("failed to create cache directory: %w", err)
	}

	info, err := a.decoder.Probe(ctx, song.VideoPath)
	if err != nil {
		return domain.MediaInfo{}, decodeError(song.VideoPath, err)
	}
	if info.Duration <= 0 {
		a.logger.Warn("invalid duration, using fallback", "video", song.VideoPath, "duration", info.Duration)
		info.Duration = fallbackDuration
	}
	if !info.HasAudio {
		return domain.MediaInfo{}, fmt.Errorf("%w: %s", domain.ErrNoAudioTrack, song.VideoPath)
	}

	if !prepared || !a.exists(song.ThumbnailPath) {
		at := RepresentativeTime(info.Duration)
		if err := a.decoder.WriteFrame(ctx, song.VideoPath, at, song.ThumbnailPath); err != nil {
			return domain.MediaInfo{}, decodeError(song.VideoPath, err)
		}
	}

	if !a.exists(song.AudioPath) {
		if err := a.writeAudio(ctx, song); err != nil {
			return domain.MediaInfo{}, err
		}
	}

	a.mu.Lock()
	a.prepared[key] = info
	a.mu.Unlock()

	a.logger.Debug("assets ready", "key", key, "duration", info.Duration, "width", info.Width, "height", info.Height)
	return info, nil
}

// writeAudio extracts into a sibling temp file and renames it into place,
// so an interrupted or failed extraction never leaves a partial track.
func (a *Assets) writeAudio(ctx context.Context, song *domain.Song) error {
	dir, name := filepath.Split(song.AudioPath)
	ext := filepath.Ext(name)
	tmp := filepath.Join(dir, "."+strings.TrimSuffix(name, ext)+".partial"+ext)

	if err := a.decoder.WriteAudio(ctx, song.VideoPath, tmp); err != nil {
		a.fs.Remove(tmp)
		if errors.Is(err, domain.ErrNoAudioTrack) {
			return err
		}
		return decodeError(song.VideoPath, err)
	}
	if err := a.fs.Rename(tmp, song.AudioPath); err != nil {
		a.fs.Remove(tmp)
		return fmt.Errorf("failed to store audio track: %w", err)
	}
	return nil
}

// Prepared reports whether key was derived in this process
func (a *Assets) Prepared(key string) bool {
	_, ok := a.lookup(key)
	return ok
}

// Forget drops the remembered state for key, so the next Ensure derives
// again. Used after the artifacts for key were deleted.
func (a *Assets) Forget(key string) {
	a.mu.Lock()
	delete(a.prepared, key)
	a.mu.Unlock()
}

// RepresentativeTime is the clip midpoint, kept at least thumbnailGuard
// before the end of the stream.
func RepresentativeTime(duration time.Duration) time.Duration {
	upper := max(0, duration-thumbnailGuard)
	return min(max(duration/2, 0), upper)
}

func (a *Assets) lookup(key string) (domain.MediaInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	info, ok := a.prepared[key]
	return info, ok
}

func (a *Assets) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[key] = lock
	}
	return lock
}

func (a *Assets) exists(path string) bool {
	if path == "" {
		return false
	}
	ok, _ := afero.Exists(a.fs, path)
	return ok
}

func decodeError(path string, err error) error {
	if errors.Is(err, domain.ErrDecode) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDecode, path, err)
}
