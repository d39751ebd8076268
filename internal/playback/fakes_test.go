package playback

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/library"
	"github.com/mmcdole/reel/internal/search"
)

type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock { return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeAssets struct {
	durations map[string]time.Duration
	errs      map[string]error
	calls     int
}

func (a *fakeAssets) Ensure(ctx context.Context, song *domain.Song) (domain.MediaInfo, error) {
	a.calls++
	if err := a.errs[song.CacheKey]; err != nil {
		return domain.MediaInfo{}, err
	}
	d, ok := a.durations[song.CacheKey]
	if !ok {
		d = 10 * time.Second
	}
	return domain.MediaInfo{Duration: d, Width: 1280, Height: 720, HasAudio: true}, nil
}

type fakeFrames struct {
	loaded domain.SongID
	loads  int
}

func (f *fakeFrames) Load(song *domain.Song) error {
	f.loads++
	f.loaded = song.ID
	return nil
}

func (f *fakeFrames) Unload() { f.loaded = "" }

func (f *fakeFrames) FrameAt(ts time.Duration) image.Image {
	if f.loaded == "" {
		return nil
	}
	return image.NewGray(image.Rect(0, 0, 1, 1))
}

type deviceCall struct {
	path   string
	start  time.Duration
	paused bool
	onEnd  func()
}

type fakeDevice struct {
	calls   []deviceCall
	fail    bool
	paused  bool
	stopped int
	volume  float64
}

func (d *fakeDevice) Play(path string, start time.Duration, paused bool, onEnd func()) error {
	if d.fail {
		return errors.New("mixer not initialized")
	}
	d.calls = append(d.calls, deviceCall{path, start, paused, onEnd})
	d.paused = paused
	return nil
}

func (d *fakeDevice) Pause() { d.paused = true }
func (d *fakeDevice) Resume() { d.paused = false }
func (d *fakeDevice) Stop() { d.stopped++ }
func (d *fakeDevice) SetVolume(v float64) { d.volume = v }

// end fires the end-of-track callback of the most recent load
func (d *fakeDevice) end() {
	d.calls[len(d.calls)-1].onEnd()
}

type fakeStore struct {
	songs  map[string]domain.SongState
	volume *float64
}

func newFakeStore() *fakeStore { return &fakeStore{songs: make(map[string]domain.SongState)} }

func (s *fakeStore) GetSongState(key string) (domain.SongState, bool) {
	st, ok := s.songs[key]
	return st, ok
}
func (s *fakeStore) SaveSongState(key string, st domain.SongState) error {
	s.songs[key] = st
	return nil
}
func (s *fakeStore) DeleteSongState(key string) { delete(s.songs, key) }
func (s *fakeStore) GetVolume() (float64, bool) {
	if s.volume == nil {
		return 0, false
	}
	return *s.volume, true
}
func (s *fakeStore) SaveVolume(v float64) error {
	s.volume = &v
	return nil
}
func (s *fakeStore) Close() error { return nil }

type recordingObserver struct{ snaps []domain.PlaybackSnapshot }

func (o *recordingObserver) OnTransition(s domain.PlaybackSnapshot) { o.snaps = append(o.snaps, s) }

type harness struct {
	ctx      context.Context
	clock    *fakeClock
	assets   *fakeAssets
	frames   *fakeFrames
	device   *fakeDevice
	store    *fakeStore
	observer *recordingObserver
	index    *library.Index
	ctrl     *Controller
	songs    []*domain.Song
}

func newHarness(names ...string) *harness {
	h := &harness{
		ctx:      context.Background(),
		clock:    newFakeClock(),
		assets:   &fakeAssets{durations: map[string]time.Duration{}, errs: map[string]error{}},
		frames:   &fakeFrames{},
		device:   &fakeDevice{},
		store:    newFakeStore(),
		observer: &recordingObserver{},
		index:    library.NewIndex(library.DefaultPageSize, search.ModeSubstring),
	}
	for i, name := range names {
		song := &domain.Song{
			ID:        domain.SongID(name),
			Name:      name,
			Artist:    "Band",
			VideoPath: fmt.Sprintf("/data/songs/%d.mp4", i),
		}
		library.SetCacheKey(song, library.CacheKey(song.Artist, song.Name, song.VideoPath), "/data/.cache")
		h.songs = append(h.songs, song)
	}
	h.index.Reset(h.songs)
	h.ctrl = NewController(h.index, h.assets, h.frames, h.device, Options{
		Clock:     h.clock,
		Store:     h.store,
		Volume:    0.7,
		Observers: []domain.PlaybackObserver{h.observer},
	})
	return h
}

func (h *harness) current() domain.SongID {
	snap := h.ctrl.Snapshot()
	if snap.Current == nil {
		return ""
	}
	return snap.Current.ID
}
