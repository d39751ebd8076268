package library

import (
	"fmt"
	"path/filepath"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/mmcdole/reel/internal/search"
	"github.com/samber/lo"
)

// DefaultPageSize is the number of songs revealed per "load more"
const DefaultPageSize = 5

// Index owns every song in the library and the derived views over it.
//
// Songs are held once, keyed by ID. The full order, the filtered view and
// the shuffle queue only ever hold IDs, so replacing a song is visible to
// all of them at once. The visible page is always filtered[:limit].
// Songs whose assets could not be derived are marked unavailable and kept
// out of the filtered view until they are edited or the library is reset.
// Index is not safe for concurrent use; the transport controller guards it.
type Index struct {
	songs    map[domain.SongID]*domain.Song
	order    []domain.SongID
	filtered []domain.SongID

	unavailable map[domain.SongID]bool

	query    string
	mode     search.Mode
	limit    int
	pageSize int
}

// NewIndex creates an empty index
func NewIndex(pageSize int, mode search.Mode) *Index {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Index{
		songs:       make(map[domain.SongID]*domain.Song),
		unavailable: make(map[domain.SongID]bool),
		mode:        mode,
		pageSize:    pageSize,
	}
}

// AssignCacheKeys gives each song the cache key it holds once the list is
// passed to Reset, so per-key state can be looked up beforehand.
func AssignCacheKeys(songs []*domain.Song) {
	x := NewIndex(DefaultPageSize, search.ModeSubstring)
	for _, song := range songs {
		x.insert(song)
	}
}

// Reset replaces the whole collection and shows the first page
func (x *Index) Reset(songs []*domain.Song) {
	x.songs = make(map[domain.SongID]*domain.Song, len(songs))
	x.unavailable = make(map[domain.SongID]bool)
	x.order = x.order[:0]
	for _, song := range songs {
		x.insert(song)
	}
	x.Refilter(true)
}

// Add appends song to the library order, assigning it a unique cache key.
// The visible page keeps its size.
func (x *Index) Add(song *domain.Song) {
	x.insert(song)
	x.Refilter(false)
}

func (x *Index) insert(song *domain.Song) {
	if song.ID == "" {
		panic("library: song without ID")
	}
	if _, exists := x.songs[song.ID]; !exists {
		x.order = append(x.order, song.ID)
	}
	x.AssignCacheKey(song)
	x.songs[song.ID] = song
}

// Replace stores song under id, keeping the library position of the old
// entry. Every view that referenced id now resolves to song.
func (x *Index) Replace(id domain.SongID, song *domain.Song) error {
	if _, ok := x.songs[id]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrSongNotFound, id)
	}
	song.ID = id
	x.songs[id] = song
	delete(x.unavailable, id)
	x.AssignCacheKey(song)
	x.Refilter(false)
	return nil
}

// Remove deletes id from the library and every view
func (x *Index) Remove(id domain.SongID) (*domain.Song, error) {
	song, ok := x.songs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSongNotFound, id)
	}
	delete(x.songs, id)
	delete(x.unavailable, id)
	x.order = lo.Without(x.order, id)
	x.Refilter(false)
	return song, nil
}

// AssignCacheKey gives song the key it has when stored under its ID: the
// base key with -2, -3, ... appended while that key is held by a different
// song backed by a different video file.
func (x *Index) AssignCacheKey(song *domain.Song) {
	base := CacheKey(song.Artist, song.Name, song.VideoPath)
	cacheDir := filepath.Dir(song.ThumbnailPath)

	key := base
	for n := 2; x.keyTaken(key, song); n++ {
		key = fmt.Sprintf("%s-%d", base, n)
	}
	if key != song.CacheKey || song.ThumbnailPath == "" {
		SetCacheKey(song, key, cacheDir)
	}
}

func (x *Index) keyTaken(key string, song *domain.Song) bool {
	for id, other := range x.songs {
		if id == song.ID {
			continue
		}
		if other.CacheKey == key && filepath.Clean(other.VideoPath) != filepath.Clean(song.VideoPath) {
			return true
		}
	}
	return false
}

// MarkUnavailable hides id from the filtered view. The visible page keeps
// its size. It reports false for an unknown song.
func (x *Index) MarkUnavailable(id domain.SongID) bool {
	if _, ok := x.songs[id]; !ok {
		return false
	}
	x.unavailable[id] = true
	x.Refilter(false)
	return true
}

// Unavailable reports whether id has been marked unavailable
func (x *Index) Unavailable(id domain.SongID) bool { return x.unavailable[id] }

// Get returns the song stored under id
func (x *Index) Get(id domain.SongID) (*domain.Song, bool) {
	song, ok := x.songs[id]
	return song, ok
}

// Songs returns every song in library order
func (x *Index) Songs() []*domain.Song {
	return x.resolve(x.order)
}

// Len returns the number of songs in the library
func (x *Index) Len() int { return len(x.order) }

// Query returns the active search query
func (x *Index) Query() string { return x.query }

// Mode returns the search predicate in use
func (x *Index) Mode() search.Mode { return x.mode }

// PageSize returns the pagination increment
func (x *Index) PageSize() int { return x.pageSize }

// SetQuery filters the library by query and resets the page
func (x *Index) SetQuery(query string) {
	x.query = query
	x.Refilter(true)
}

// Refilter recomputes the filtered view under the current query. With
// resetVisible the page shrinks back to one page; otherwise it keeps its
// size, bounded by the new filtered length.
func (x *Index) Refilter(resetVisible bool) {
	candidates := lo.Reject(x.order, func(id domain.SongID, _ int) bool { return x.unavailable[id] })
	keys := make([]string, len(candidates))
	for i, id := range candidates {
		keys[i] = x.songs[id].SearchKey()
	}
	matched := search.Filter(x.mode, x.query, keys)

	x.filtered = make([]domain.SongID, len(matched))
	for i, idx := range matched {
		x.filtered[i] = candidates[idx]
	}

	if resetVisible {
		x.limit = min(x.pageSize, len(x.filtered))
	} else {
		x.limit = min(max(x.limit, x.pageSize), len(x.filtered))
	}
}

// Filtered returns the IDs matching the query, in library order
func (x *Index) Filtered() []domain.SongID {
	return append([]domain.SongID(nil), x.filtered...)
}

// FilteredSongs returns the songs matching the query, in library order
func (x *Index) FilteredSongs() []*domain.Song {
	return x.resolve(x.filtered)
}

// FilteredPosition returns the position of id in the filtered view, or -1
func (x *Index) FilteredPosition(id domain.SongID) int {
	return lo.IndexOf(x.filtered, id)
}

// Visible returns the songs on the displayed pages
func (x *Index) Visible() []*domain.Song {
	return x.resolve(x.filtered[:x.limit])
}

// Limit returns the number of visible songs
func (x *Index) Limit() int { return x.limit }

// HasMore reports whether filtered songs remain beyond the visible page
func (x *Index) HasMore() bool { return x.limit < len(x.filtered) }

// LoadMore reveals the next page. It reports false when nothing was added.
func (x *Index) LoadMore() bool {
	if !x.HasMore() {
		return false
	}
	x.limit = min(x.limit+x.pageSize, len(x.filtered))
	return true
}

// EnsureVisible grows the page to the page boundary that includes id.
// Songs outside the filtered view are left alone.
func (x *Index) EnsureVisible(id domain.SongID) bool {
	pos := x.FilteredPosition(id)
	if pos < 0 {
		return false
	}
	if pos >= x.limit {
		x.limit = min((pos/x.pageSize+1)*x.pageSize, len(x.filtered))
	}
	return true
}

func (x *Index) resolve(ids []domain.SongID) []*domain.Song {
	out := make([]*domain.Song, 0, len(ids))
	for _, id := range ids {
		if song, ok := x.songs[id]; ok {
			out = append(out, song)
		}
	}
	return out
}
