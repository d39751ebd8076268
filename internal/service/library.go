package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/library"
	"github.com/mmcdole/reel/internal/playback"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// VideoExtensions are the accepted import formats
var VideoExtensions = []string{".avi", ".m4v", ".mkv", ".mov", ".mp4", ".mpeg", ".mpg", ".webm", ".wmv"}

// assetCache derives song artifacts (consumer-defined interface)
type assetCache interface {
	Ensure(ctx context.Context, song *domain.Song) (domain.MediaInfo, error)
	Forget(key string)
}

// catalog is the controller-owned song collection (consumer-defined interface)
type catalog interface {
	View() playback.LibraryView
	Songs() []*domain.Song
	Lookup(id domain.SongID) (*domain.Song, bool)
	AssignCacheKey(song *domain.Song)
	AddSong(song *domain.Song)
	ReplaceSong(ctx context.Context, id domain.SongID, song *domain.Song) error
	RemoveSong(id domain.SongID) (*domain.Song, error)
	ResetLibrary(songs []*domain.Song)
	ApplyMedia(id domain.SongID, info domain.MediaInfo)
	MarkUnavailable(id domain.SongID)
}

// LibraryOptions configures a LibraryService
type LibraryOptions struct {
	Store   domain.StateStore // optional; restores loop flags and last media info
	Workers int               // background preparation workers
	Logger  *slog.Logger
}

// LibraryService loads and saves the library document and handles song
// import, edit and deletion. The song collection itself lives in the
// transport controller.
type LibraryService struct {
	fs       afero.Fs
	resolver *library.Resolver
	assets   assetCache
	catalog  catalog
	store    domain.StateStore
	workers  int
	logger   *slog.Logger

	mu          sync.Mutex // serializes document writes and imports
	lastWritten []byte
}

// NewLibraryService creates a new library service
func NewLibraryService(fs afero.Fs, resolver *library.Resolver, assets assetCache, catalog catalog, opts LibraryOptions) *LibraryService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &LibraryService{
		fs:       fs,
		resolver: resolver,
		assets:   assets,
		catalog:  catalog,
		store:    opts.Store,
		workers:  opts.Workers,
		logger:   opts.Logger,
	}
}

// Paths returns the library locations in use
func (s *LibraryService) Paths() library.Paths { return s.resolver.Paths() }

// LoadLibrary bootstraps the library root and loads the document into the
// controller.
func (s *LibraryService) LoadLibrary() error {
	if err := library.Bootstrap(s.fs, s.resolver, s.logger); err != nil {
		s.logger.Warn("library bootstrap incomplete", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Reload re-reads the document after an external change. It reports false
// when the document is byte-identical to what this process last wrote.
func (s *LibraryService) Reload() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, s.resolver.Paths().LibraryFile())
	if err == nil && bytes.Equal(data, s.lastWritten) {
		return false, nil
	}
	if err := s.loadLocked(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *LibraryService) loadLocked() error {
	songs, err := library.Load(s.fs, s.resolver, s.logger)
	if err != nil {
		return err
	}
	library.AssignCacheKeys(songs)
	s.restoreState(songs)
	s.catalog.ResetLibrary(songs)
	s.lastWritten, _ = afero.ReadFile(s.fs, s.resolver.Paths().LibraryFile())
	return nil
}

// restoreState applies persisted loop flags and the last measured media
// info. Measured info is display-only until the artifacts are ensured.
func (s *LibraryService) restoreState(songs []*domain.Song) {
	if s.store == nil {
		return
	}
	for _, song := range songs {
		st, ok := s.store.GetSongState(song.CacheKey)
		if !ok {
			continue
		}
		song.Loop = st.Loop
		song.Duration, song.Width, song.Height = st.Duration, st.Width, st.Height
	}
}

// Save writes the library document from the controller's songs
func (s *LibraryService) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *LibraryService) saveLocked() error {
	if err := library.Save(s.fs, s.resolver, s.catalog.Songs()); err != nil {
		return fmt.Errorf("failed to save library: %w", err)
	}
	s.lastWritten, _ = afero.ReadFile(s.fs, s.resolver.Paths().LibraryFile())
	return nil
}

// ImportOrEdit validates path, copies the video into the songs directory
// when it lives elsewhere, derives its artifacts and saves the library.
// A non-empty editing ID replaces that song instead of adding a new one.
// On failure nothing is added and any copied file is removed.
func (s *LibraryService) ImportOrEdit(ctx context.Context, path, name, artist string, editing domain.SongID) (*domain.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var old *domain.Song
	if editing != "" {
		var ok bool
		if old, ok = s.catalog.Lookup(editing); !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrSongNotFound, editing)
		}
	}

	src, err := s.locateVideo(path)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	artist = strings.TrimSpace(artist)
	if artist == "" {
		artist = library.DefaultArtist
	}

	dest, copied, err := s.placeVideo(src)
	if err != nil {
		return nil, err
	}
	discard := func() {
		if copied {
			if err := s.fs.Remove(dest); err != nil {
				s.logger.Warn("failed to remove copied video", "path", dest, "error", err)
			}
		}
	}

	song, err := library.NewSong(s.fs, name, artist, dest, s.resolver.Paths().CacheDir())
	if err != nil {
		discard()
		return nil, err
	}
	if old != nil {
		song.ID = old.ID
		song.Loop = old.Loop
		if filepath.Clean(old.VideoPath) != filepath.Clean(dest) {
			// artifacts of the old video must not satisfy the new one
			s.removeFile(old.ThumbnailPath)
			s.removeFile(old.AudioPath)
			s.assets.Forget(old.CacheKey)
		}
	}
	s.catalog.AssignCacheKey(song)

	info, err := s.assets.Ensure(ctx, song)
	if err != nil {
		discard()
		return nil, prepareError(err)
	}
	song.ApplyMedia(info)

	if old == nil {
		s.catalog.AddSong(song)
		s.logger.Info("imported song", "song", song.Title(), "video", dest, "copied", copied)
	} else {
		if err := s.catalog.ReplaceSong(ctx, old.ID, song); err != nil {
			if errors.Is(err, domain.ErrSongNotFound) {
				discard()
				return nil, err
			}
			s.logger.Warn("edited song could not resume playback", "song", song.Title(), "error", err)
		}
		s.retire(old, song)
		s.logger.Info("edited song", "song", song.Title(), "video", dest)
	}

	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	saved, _ := s.catalog.Lookup(song.ID)
	return saved, nil
}

// retire cleans up what an edit left behind: a moved managed video, stale
// artifacts and persisted state under the old cache key.
func (s *LibraryService) retire(old, updated *domain.Song) {
	if filepath.Clean(old.VideoPath) != filepath.Clean(updated.VideoPath) && s.managed(old.VideoPath) {
		s.removeFile(old.VideoPath)
	}
	if old.CacheKey == updated.CacheKey {
		return
	}
	s.removeFile(old.ThumbnailPath)
	s.removeFile(old.AudioPath)
	s.assets.Forget(old.CacheKey)

	if s.store == nil {
		return
	}
	if st, ok := s.store.GetSongState(old.CacheKey); ok {
		if err := s.store.SaveSongState(updated.CacheKey, st); err != nil {
			s.logger.Warn("failed to move song state", "from", old.CacheKey, "to", updated.CacheKey, "error", err)
		}
		s.store.DeleteSongState(old.CacheKey)
	}
}

// Delete removes a song, its artifacts and its persisted state. The video
// is removed only when it lives in the songs directory.
func (s *LibraryService) Delete(id domain.SongID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	song, err := s.catalog.RemoveSong(id)
	if err != nil {
		return err
	}

	s.removeFile(song.AudioPath)
	s.removeFile(song.ThumbnailPath)
	if s.managed(song.VideoPath) {
		s.removeFile(song.VideoPath)
	}
	s.assets.Forget(song.CacheKey)
	if s.store != nil {
		s.store.DeleteSongState(song.CacheKey)
	}

	s.logger.Info("deleted song", "song", song.Title())
	return s.saveLocked()
}

// PrepareVisible derives artifacts for visible songs that are not ready
// yet, using a bounded worker pool. Songs that fail are logged and marked
// unavailable so they are not retried until edited or reloaded. It returns
// the number of songs prepared.
func (s *LibraryService) PrepareVisible(ctx context.Context) int {
	return s.prepare(ctx, s.catalog.View().Visible)
}

// PrepareAll derives artifacts for every song in the library
func (s *LibraryService) PrepareAll(ctx context.Context) int {
	return s.prepare(ctx, s.catalog.Songs())
}

func (s *LibraryService) prepare(ctx context.Context, songs []*domain.Song) int {
	pending := lo.Filter(songs, func(song *domain.Song, _ int) bool { return !song.AssetsReady })
	if len(pending) == 0 {
		return 0
	}

	var prepared atomic.Int64
	p := pool.New().WithMaxGoroutines(s.workers)
	for _, song := range pending {
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			info, err := s.assets.Ensure(ctx, song)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("unable to prepare assets", "song", song.Title(), "error", err)
				s.catalog.MarkUnavailable(song.ID)
				return
			}
			s.catalog.ApplyMedia(song.ID, info)
			prepared.Add(1)
		})
	}
	p.Wait()

	s.logger.Debug("prepared songs", "count", prepared.Load(), "pending", len(pending))
	return int(prepared.Load())
}

// Watch reloads the library when another process changes the document.
// The returned channel receives after every reload that changed the
// library and is closed when ctx is done.
func (s *LibraryService) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := library.Watch(ctx, s.resolver.Paths().LibraryFile(), s.logger)
	if err != nil {
		return nil, err
	}

	reloaded := make(chan struct{}, 1)
	go func() {
		defer close(reloaded)
		for range events {
			changed, err := s.Reload()
			if err != nil {
				s.logger.Warn("failed to reload library", "error", err)
				continue
			}
			if !changed {
				continue
			}
			s.logger.Info("library reloaded after external change")
			select {
			case reloaded <- struct{}{}:
			default:
			}
		}
	}()
	return reloaded, nil
}

// locateVideo turns user input into an existing, readable video file.
// Quotes are stripped and environment variables and ~ expanded; relative
// paths are tried against the working and home directories.
func (s *LibraryService) locateVideo(raw string) (string, error) {
	p := strings.TrimSpace(raw)
	if len(p) >= 2 && (p[0] == '"' || p[0] == '\'') && p[len(p)-1] == p[0] {
		p = strings.TrimSpace(p[1 : len(p)-1])
	}
	if p == "" {
		return "", fmt.Errorf("%w: please provide a path to the video file", domain.ErrInvalidMedia)
	}
	p = library.ExpandUser(expandEnv(p))

	candidates := []string{filepath.Clean(p)}
	if !filepath.IsAbs(p) {
		if wd, err := os.Getwd(); err == nil {
			candidates = append(candidates, filepath.Join(wd, p))
		}
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, p))
		}
	}

	found, ok := lo.Find(lo.Uniq(candidates), func(c string) bool {
		_, err := s.fs.Stat(c)
		return err == nil
	})
	if !ok {
		return "", fmt.Errorf("%w: could not find a file at %s", domain.ErrInvalidMedia, p)
	}
	if abs, err := filepath.Abs(found); err == nil {
		found = abs
	}

	info, err := s.fs.Stat(found)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: the selected path must be a file", domain.ErrInvalidMedia)
	}
	f, err := s.fs.Open(found)
	if err != nil {
		return "", fmt.Errorf("%w: cannot read %s, check permissions", domain.ErrInvalidMedia, found)
	}
	f.Close()

	if !lo.Contains(VideoExtensions, strings.ToLower(filepath.Ext(found))) {
		return "", fmt.Errorf("%w: unsupported format, use one of: %s", domain.ErrInvalidMedia, strings.Join(VideoExtensions, ", "))
	}
	return found, nil
}

// placeVideo copies src into the songs directory unless it already lives
// there. A taken name gets a _1, _2, ... suffix.
func (s *LibraryService) placeVideo(src string) (string, bool, error) {
	if s.managed(src) {
		return src, false, nil
	}

	songsDir := s.resolver.Paths().SongsDir()
	if err := s.fs.MkdirAll(songsDir, 0755); err != nil {
		return "", false, fmt.Errorf("unable to copy file: %w", err)
	}

	ext := filepath.Ext(src)
	stem := strings.TrimSuffix(filepath.Base(src), ext)
	dest := filepath.Join(songsDir, filepath.Base(src))
	for n := 1; ; n++ {
		if exists, _ := afero.Exists(s.fs, dest); !exists {
			break
		}
		dest = filepath.Join(songsDir, fmt.Sprintf("%s_%d%s", stem, n, ext))
	}

	if err := library.CopyFile(s.fs, src, dest); err != nil {
		return "", false, fmt.Errorf("unable to copy file: %w", err)
	}
	return dest, true, nil
}

// managed reports whether path lives directly in the songs directory
func (s *LibraryService) managed(path string) bool {
	return filepath.Dir(filepath.Clean(path)) == filepath.Clean(s.resolver.Paths().SongsDir())
}

func (s *LibraryService) removeFile(path string) {
	if path == "" {
		return
	}
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove file", "path", path, "error", err)
	}
}

// prepareError phrases an asset derivation failure for the import form
func prepareError(err error) error {
	if errors.Is(err, domain.ErrNoAudioTrack) {
		return fmt.Errorf("%w: cannot import this video because it does not contain an audio track", domain.ErrNoAudioTrack)
	}
	return fmt.Errorf("unable to prepare media: %w", err)
}

// expandEnv expands $VAR and ${VAR}, leaving unset variables untouched
func expandEnv(s string) string {
	return os.Expand(s, func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return "${" + key + "}"
	})
}
