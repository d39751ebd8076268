package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/reel/internal/domain"
	"github.com/spf13/afero"
)

// Entry is one song as stored in the library document
type Entry struct {
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	PathToVideo string `json:"pathtovideo"`
}

// Document is the on-disk song list
type Document struct {
	Songs []Entry `json:"songs"`
}

// ReadDocument parses the library document at path. A missing file, bad
// JSON or an empty song list is an ErrLibraryFormat.
func ReadDocument(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: could not find song data file at %s", domain.ErrLibraryFormat, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrLibraryFormat, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrLibraryFormat, path, err)
	}
	if len(doc.Songs) == 0 {
		return nil, fmt.Errorf("%w: no songs defined in %s", domain.ErrLibraryFormat, filepath.Base(path))
	}
	return &doc, nil
}

// WriteDocument writes doc with 4-space indentation. The document is
// written to a hidden sibling and renamed over path.
func WriteDocument(fs afero.Fs, path string, doc *Document) error {
	if doc.Songs == nil {
		doc.Songs = []Entry{}
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}
	tmp := partialPath(path)
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return fmt.Errorf("failed to replace library document: %w", err)
	}
	return nil
}

// Load reads the library document and builds songs for every entry whose
// video resolves to an existing file. Entries that fail are logged and
// skipped; document-level failures are returned.
func Load(fs afero.Fs, resolver *Resolver, logger *slog.Logger) ([]*domain.Song, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths := resolver.Paths()

	doc, err := ReadDocument(fs, paths.LibraryFile())
	if err != nil {
		return nil, err
	}

	songs := make([]*domain.Song, 0, len(doc.Songs))
	for _, entry := range doc.Songs {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = DefaultName
		}
		artist := strings.TrimSpace(entry.Artist)
		if artist == "" {
			artist = DefaultArtist
		}

		videoPath := resolver.Resolve(entry.PathToVideo)
		song, err := NewSong(fs, name, artist, videoPath, paths.CacheDir())
		if err != nil {
			logger.Warn("skipping song", "name", name, "error", err)
			continue
		}
		songs = append(songs, song)
	}

	logger.Info("loaded library", "path", paths.LibraryFile(), "songs", len(songs), "entries", len(doc.Songs))
	return songs, nil
}

// Save writes songs back in library order, serializing every video path
// through the resolver.
func Save(fs afero.Fs, resolver *Resolver, songs []*domain.Song) error {
	doc := &Document{Songs: make([]Entry, 0, len(songs))}
	for _, song := range songs {
		doc.Songs = append(doc.Songs, Entry{
			Name:        song.Name,
			Artist:      song.Artist,
			PathToVideo: resolver.Serialize(song.VideoPath),
		})
	}
	return WriteDocument(fs, resolver.Paths().LibraryFile(), doc)
}
