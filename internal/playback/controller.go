package playback

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/library"
	"github.com/samber/lo"
)

// positionGuard keeps a start or resume position away from end-of-stream
const positionGuard = 50 * time.Millisecond

// assetCache derives the artifacts a song needs before it can play
// (consumer-defined interface)
type assetCache interface {
	Ensure(ctx context.Context, song *domain.Song) (domain.MediaInfo, error)
}

// frameCache serves preview frames for the current song
// (consumer-defined interface)
type frameCache interface {
	Load(song *domain.Song) error
	Unload()
	FrameAt(ts time.Duration) image.Image
}

// Options configures a Controller
type Options struct {
	Clock     domain.Clock      // defaults to the system clock
	Store     domain.StateStore // optional; persists loop flags, statistics and volume
	Volume    float64
	Observers []domain.PlaybackObserver
	Logger    *slog.Logger
}

// Controller is the transport state machine. It owns the library index and
// drives the audio device, the frame session and the anchor clock.
//
// Every exported method is serialized by one mutex, including end-of-track
// signals arriving from the device goroutine. Observers are called with the
// lock held and must not call back into the controller.
type Controller struct {
	mu sync.Mutex

	index  *library.Index
	assets assetCache
	frames frameCache
	device domain.AudioDevice
	store  domain.StateStore
	clock  *Clock
	now    domain.Clock
	logger *slog.Logger

	observers []domain.PlaybackObserver

	state      domain.PlaybackState
	current    domain.SongID
	shuffle    bool
	queue      []domain.SongID
	fullscreen bool
	volume     float64
	generation uint64
}

// NewController creates a stopped controller over index
func NewController(index *library.Index, assets assetCache, frames frameCache, device domain.AudioDevice, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock{}
	}

	c := &Controller{
		index:     index,
		assets:    assets,
		frames:    frames,
		device:    device,
		store:     opts.Store,
		clock:     NewClock(opts.Clock),
		now:       opts.Clock,
		logger:    opts.Logger,
		observers: opts.Observers,
		state:     domain.StateStopped,
		volume:    clampVolume(opts.Volume),
	}
	if c.store != nil {
		if v, ok := c.store.GetVolume(); ok {
			c.volume = clampVolume(v)
		}
	}
	device.SetVolume(c.volume)
	return c
}

// Play starts id from the beginning. Shuffle is cancelled.
func (c *Controller) Play(ctx context.Context, id domain.SongID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	song, err := c.song(id)
	if err != nil {
		return err
	}
	c.clearShuffle()
	return c.playLocked(ctx, song)
}

// TogglePause pauses or resumes the current song. For any other song it
// cancels shuffle and starts that song from the beginning.
func (c *Controller) TogglePause(ctx context.Context, id domain.SongID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	song, err := c.song(id)
	if err != nil {
		return err
	}
	if c.current != id || c.state == domain.StateStopped {
		c.clearShuffle()
		return c.playLocked(ctx, song)
	}

	switch c.state {
	case domain.StatePlaying:
		c.clock.Pause()
		c.device.Pause()
		c.state = domain.StatePaused
	case domain.StatePaused:
		c.clock.Resume()
		c.device.Resume()
		c.state = domain.StatePlaying
	}
	c.notify()
	return nil
}

// Seek moves to ratio of the song's duration. The current song keeps its
// paused or playing state; any other song cancels shuffle and plays.
func (c *Controller) Seek(ctx context.Context, id domain.SongID, ratio float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	song, err := c.song(id)
	if err != nil {
		return err
	}
	ratio = min(max(ratio, 0), 1)

	if err := c.ensure(ctx, song); err != nil {
		return err
	}
	target := time.Duration(ratio * float64(song.Duration))

	playing := true
	if c.current == id && c.state != domain.StateStopped {
		playing = c.state == domain.StatePlaying
	} else {
		c.clearShuffle()
	}
	return c.start(ctx, song, target, playing)
}

// Stop halts playback and leaves the fullscreen-equivalent view
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

// TrackEnded handles a natural end-of-track signal for the playback started
// under generation gen. Signals from superseded playbacks are ignored.
func (c *Controller) TrackEnded(ctx context.Context, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || c.state == domain.StateStopped {
		c.logger.Debug("ignoring stale end of track", "generation", gen, "current", c.generation)
		return
	}

	var err error
	song, _ := c.index.Get(c.current)
	switch {
	case song != nil && song.Loop:
		err = c.playLocked(ctx, song)
	case len(c.queue) > 0:
		err = c.playQueued(ctx)
	default:
		if c.shuffle {
			c.shuffle = false
			c.index.Refilter(false)
		}
		err = c.advance(ctx)
	}

	if err != nil {
		c.logger.Error("failed to continue after end of track", "error", err)
		c.stopLocked()
	}
}

// PlayNext skips to the successor of the current song. While shuffling it
// takes the head of the shuffle queue; otherwise it walks the filtered view,
// stopping after the last song.
func (c *Controller) PlayNext(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shuffle && len(c.queue) > 0 {
		return c.playQueued(ctx)
	}
	return c.advance(ctx)
}

// advance plays the next song of the filtered view. At the end it wraps
// only while shuffling.
func (c *Controller) advance(ctx context.Context) error {
	filtered := c.index.Filtered()
	if len(filtered) == 0 {
		c.stopLocked()
		return nil
	}

	next := 0
	if c.current != "" {
		if pos := c.index.FilteredPosition(c.current); pos >= 0 {
			next = pos + 1
		}
	}
	if next >= len(filtered) {
		if !c.shuffle {
			c.stopLocked()
			return nil
		}
		next = 0
	}

	song, err := c.song(filtered[next])
	if err != nil {
		return err
	}
	return c.playLocked(ctx, song)
}

func (c *Controller) playQueued(ctx context.Context) error {
	head := c.queue[0]
	c.queue = c.queue[1:]
	song, err := c.song(head)
	if err != nil {
		return err
	}
	return c.playLocked(ctx, song)
}

// playLocked makes song visible and starts it from the beginning without
// touching shuffle state.
func (c *Controller) playLocked(ctx context.Context, song *domain.Song) error {
	c.index.EnsureVisible(song.ID)
	return c.start(ctx, song, 0, true)
}

// start loads song into the device at pos. If the device rejects the load,
// the previous transport state is kept and ErrDevice is returned.
func (c *Controller) start(ctx context.Context, song *domain.Song, pos time.Duration, playing bool) error {
	if err := c.ensure(ctx, song); err != nil {
		return err
	}
	pos = ClampPosition(pos, song.Duration)

	gen := c.generation + 1
	onEnd := func() { c.TrackEnded(context.Background(), gen) }
	if err := c.device.Play(song.AudioPath, pos, !playing, onEnd); err != nil {
		c.logger.Error("audio device rejected track", "song", song.Title(), "error", err)
		return fmt.Errorf("%w: %v", domain.ErrDevice, err)
	}
	c.generation = gen

	c.current = song.ID
	c.clock.Start(pos, song.Duration)
	if playing {
		c.state = domain.StatePlaying
	} else {
		c.clock.Pause()
		c.state = domain.StatePaused
	}
	c.queue = lo.Without(c.queue, song.ID)

	if err := c.frames.Load(song); err != nil {
		c.logger.Warn("unable to prepare video playback", "song", song.Title(), "error", err)
	}

	c.recordPlay(song)
	c.logger.Info("playing", "song", song.Title(), "position", pos, "paused", !playing, "generation", gen)
	c.notify()
	return nil
}

// ensure derives the song's artifacts and applies the measured media info
func (c *Controller) ensure(ctx context.Context, song *domain.Song) error {
	info, err := c.assets.Ensure(ctx, song)
	if err != nil {
		return err
	}
	song.ApplyMedia(info)
	return nil
}

func (c *Controller) stopLocked() {
	c.device.Stop()
	c.generation++
	c.clock.Reset()
	c.current = ""
	c.state = domain.StateStopped
	c.clearShuffle()
	c.frames.Unload()
	c.fullscreen = false
	c.notify()
}

func (c *Controller) clearShuffle() {
	c.shuffle = false
	c.queue = nil
}

// ClampPosition bounds pos to [0, duration-50ms]
func ClampPosition(pos, duration time.Duration) time.Duration {
	upper := max(0, duration-positionGuard)
	return min(max(pos, 0), upper)
}

// ToggleLoop flips the loop flag of id and returns the new value
func (c *Controller) ToggleLoop(id domain.SongID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	song, err := c.song(id)
	if err != nil {
		return false, err
	}
	song.Loop = !song.Loop
	c.saveState(song, func(st *domain.SongState) { st.Loop = song.Loop })
	c.notify()
	return song.Loop, nil
}

// SetQuery filters the library. Shuffle is cancelled and the page resets.
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearShuffle()
	c.index.SetQuery(query)
	c.notify()
}

// LoadMore reveals the next page of the filtered view
func (c *Controller) LoadMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index.LoadMore()
}

// SetVolume sets the output volume in [0,1]
func (c *Controller) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clampVolume(volume)
	c.device.SetVolume(c.volume)
	if c.store != nil {
		if err := c.store.SaveVolume(c.volume); err != nil {
			c.logger.Warn("failed to save volume", "error", err)
		}
	}
	c.notify()
}

// SetFullscreen enters or leaves the fullscreen-equivalent view. Entering
// requires a current song.
func (c *Controller) SetFullscreen(on bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.fullscreen = on && c.current != ""
	c.notify()
	return c.fullscreen
}

// Position returns the current playback position
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

func (c *Controller) positionLocked() time.Duration {
	if c.current == "" {
		return 0
	}
	return c.clock.Position()
}

// Progress returns the position of id as a fraction of its duration, or 0
// when id is not the current song.
func (c *Controller) Progress(id domain.SongID) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != c.current || c.current == "" {
		return 0
	}
	return c.snapshotLocked().Progress()
}

// CurrentFrame returns the preview frame at the current position, or nil.
// Decoding runs outside the transport lock; the frame session is safe for
// concurrent use and returns nil once unloaded.
func (c *Controller) CurrentFrame() image.Image {
	c.mu.Lock()
	if c.current == "" {
		c.mu.Unlock()
		return nil
	}
	pos := c.clock.Position()
	c.mu.Unlock()

	return c.frames.FrameAt(pos)
}

// Snapshot returns a consistent copy of the transport state
func (c *Controller) Snapshot() domain.PlaybackSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() domain.PlaybackSnapshot {
	snap := domain.PlaybackSnapshot{
		State:      c.state,
		Position:   c.positionLocked(),
		Shuffle:    c.shuffle,
		Queue:      append([]domain.SongID(nil), c.queue...),
		Fullscreen: c.fullscreen,
		Volume:     c.volume,
		Generation: c.generation,
	}
	if song, ok := c.index.Get(c.current); ok && c.current != "" {
		snap.Current = song.Clone()
	}
	return snap
}

func (c *Controller) notify() {
	if len(c.observers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, o := range c.observers {
		o.OnTransition(snap)
	}
}

func (c *Controller) song(id domain.SongID) (*domain.Song, error) {
	song, ok := c.index.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSongNotFound, id)
	}
	return song, nil
}

func (c *Controller) recordPlay(song *domain.Song) {
	c.saveState(song, func(st *domain.SongState) {
		st.PlayCount++
		st.LastPlayed = c.now.Now()
	})
}

// saveState updates the persisted record for song, refreshing its media info
func (c *Controller) saveState(song *domain.Song, update func(*domain.SongState)) {
	if c.store == nil {
		return
	}
	st, _ := c.store.GetSongState(song.CacheKey)
	st.Loop = song.Loop
	if song.AssetsReady {
		st.Duration = song.Duration
		st.Width = song.Width
		st.Height = song.Height
	}
	update(&st)
	if err := c.store.SaveSongState(song.CacheKey, st); err != nil {
		c.logger.Warn("failed to save song state", "song", song.Title(), "error", err)
	}
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}
