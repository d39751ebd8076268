package playback

import (
	"context"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	"github.com/samber/lo"
)

// LibraryView is a rendering copy of the library views
type LibraryView struct {
	Visible  []*domain.Song
	Filtered int
	Total    int
	HasMore  bool
	Query    string
	Mode     search.Mode
}

// View returns copies of the visible songs and view counters
func (c *Controller) View() LibraryView {
	c.mu.Lock()
	defer c.mu.Unlock()

	return LibraryView{
		Visible:  cloneSongs(c.index.Visible()),
		Filtered: len(c.index.Filtered()),
		Total:    c.index.Len(),
		HasMore:  c.index.HasMore(),
		Query:    c.index.Query(),
		Mode:     c.index.Mode(),
	}
}

// Songs returns copies of every song in library order
func (c *Controller) Songs() []*domain.Song {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneSongs(c.index.Songs())
}

// Lookup returns a copy of the song stored under id
func (c *Controller) Lookup(id domain.SongID) (*domain.Song, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	song, ok := c.index.Get(id)
	if !ok {
		return nil, false
	}
	return song.Clone(), true
}

// ApplyMedia records media info measured off the controller goroutine
func (c *Controller) ApplyMedia(id domain.SongID, info domain.MediaInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if song, ok := c.index.Get(id); ok {
		song.ApplyMedia(info)
	}
}

// MarkUnavailable hides a song whose assets could not be derived from the
// filtered view and the shuffle queue. Editing the song or reloading the
// library makes it eligible again.
func (c *Controller) MarkUnavailable(id domain.SongID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.index.MarkUnavailable(id) {
		return
	}
	c.queue = lo.Without(c.queue, id)
	c.notify()
}

// AssignCacheKey sets the cache key song will hold once added or stored
// under its ID, so artifacts can be derived before it joins the library.
func (c *Controller) AssignCacheKey(song *domain.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.AssignCacheKey(song)
}

// AddSong appends song to the library and pages it into view. Shuffle is
// cancelled since its order no longer covers the view.
func (c *Controller) AddSong(song *domain.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index.Add(song)
	c.index.EnsureVisible(song.ID)
	c.clearShuffle()
	c.notify()
}

// ReplaceSong swaps in an edited song under id. A current song restarts at
// its position with its paused state preserved.
func (c *Controller) ReplaceSong(ctx context.Context, id domain.SongID, song *domain.Song) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasCurrent := c.current == id && c.state != domain.StateStopped
	pos := c.positionLocked()
	paused := c.state == domain.StatePaused

	if err := c.index.Replace(id, song); err != nil {
		return err
	}
	c.index.EnsureVisible(id)
	if !wasCurrent {
		c.notify()
		return nil
	}

	if err := c.start(ctx, song, pos, !paused); err != nil {
		c.logger.Error("failed to restart edited song", "song", song.Title(), "error", err)
		c.stopLocked()
		return err
	}
	return nil
}

// RemoveSong drops id from the library, stopping it if current
func (c *Controller) RemoveSong(id domain.SongID) (*domain.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == id {
		c.stopLocked()
	}
	c.queue = lo.Without(c.queue, id)
	song, err := c.index.Remove(id)
	if err != nil {
		return nil, err
	}
	c.notify()
	return song, nil
}

// ResetLibrary replaces the library with songs. Songs that match an
// existing entry by video, name and artist keep its ID, so playback of an
// unchanged current song survives a reload.
func (c *Controller) ResetLibrary(songs []*domain.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()

	type identity struct{ video, name, artist string }
	known := make(map[identity]*domain.Song)
	for _, old := range c.index.Songs() {
		known[identity{old.VideoPath, old.Name, old.Artist}] = old
	}

	for _, song := range songs {
		old, ok := known[identity{song.VideoPath, song.Name, song.Artist}]
		if !ok {
			continue
		}
		delete(known, identity{song.VideoPath, song.Name, song.Artist})
		song.ID = old.ID
		song.Loop = old.Loop
		if old.AssetsReady && !song.AssetsReady {
			song.Duration, song.Width, song.Height = old.Duration, old.Width, old.Height
			song.AssetsReady = true
		}
	}

	query := c.index.Query()
	c.index.Reset(songs)
	if query != "" {
		c.index.SetQuery(query)
	}

	if _, ok := c.index.Get(c.current); c.current != "" && !ok {
		c.stopLocked()
		return
	}
	c.queue = lo.Filter(c.queue, func(id domain.SongID, _ int) bool {
		_, ok := c.index.Get(id)
		return ok
	})
	c.notify()
}

func cloneSongs(songs []*domain.Song) []*domain.Song {
	return lo.Map(songs, func(s *domain.Song, _ int) *domain.Song { return s.Clone() })
}
