package library

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/mmcdole/reel/internal/domain"
	"github.com/spf13/afero"
)

const (
	// DefaultName is used for entries without a name
	DefaultName = "Untitled Track"

	// DefaultArtist is used for entries without an artist
	DefaultArtist = "Unknown Artist"

	thumbnailExt = ".jpg"
	audioExt     = ".ogg"
)

// Slugify creates a filesystem friendly key from value. Every rune that is
// not a letter or digit becomes a separator; runs of separators collapse.
func Slugify(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}

// CacheKey derives the artifact key for (artist, name), falling back to the
// file stem when both slug to nothing.
func CacheKey(artist, name, videoPath string) string {
	key := strings.Trim(Slugify(artist)+"-"+Slugify(name), "-")
	if key != "" {
		return key
	}
	stem := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	if key = Slugify(stem); key != "" {
		return key
	}
	return "song"
}

// NewSong builds a song for an existing video file. Derived artifact paths
// live under cacheDir and are named by the cache key.
func NewSong(fs afero.Fs, name, artist, videoPath, cacheDir string) (*domain.Song, error) {
	videoPath = ExpandUser(videoPath)
	info, err := fs.Stat(videoPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", domain.ErrPathNotFound, videoPath)
	}

	song := &domain.Song{
		ID:        domain.SongID(uuid.NewString()),
		Name:      name,
		Artist:    artist,
		VideoPath: videoPath,
	}
	SetCacheKey(song, CacheKey(artist, name, videoPath), cacheDir)
	return song, nil
}

// SetCacheKey assigns key and the artifact paths derived from it
func SetCacheKey(song *domain.Song, key, cacheDir string) {
	song.CacheKey = key
	song.ThumbnailPath = filepath.Join(cacheDir, key+thumbnailExt)
	song.AudioPath = filepath.Join(cacheDir, key+audioExt)
}
