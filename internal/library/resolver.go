package library

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Resolver maps stored media references to files on disk and back.
// Stored references stay valid when the library root and install root differ
// across machines.
type Resolver struct {
	fs    afero.Fs
	paths Paths
}

// NewResolver creates a resolver over fs
func NewResolver(fs afero.Fs, paths Paths) *Resolver {
	return &Resolver{fs: fs, paths: paths}
}

// Paths returns the roots the resolver searches
func (r *Resolver) Paths() Paths { return r.paths }

// Resolve returns the first existing candidate for stored. When nothing
// exists it returns a best-effort location; callers must treat a missing
// result as "file missing".
func (r *Resolver) Resolve(stored string) string {
	songsDir := r.paths.SongsDir()
	bundled := r.paths.BundledSongsDir()

	if strings.TrimSpace(stored) == "" {
		return songsDir
	}

	raw := filepath.FromSlash(ExpandUser(stored))
	var candidates []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			candidates = append(candidates, p)
		}
	}

	if filepath.IsAbs(raw) {
		add(raw)
	} else {
		add(filepath.Join(songsDir, raw))
		if stripped, ok := stripSongsPrefix(raw); ok {
			add(filepath.Join(songsDir, stripped))
		}
		add(filepath.Join(r.paths.InstallRoot, raw))
		add(filepath.Join(bundled, raw))
	}

	name := baseName(raw)
	if name != "" {
		add(filepath.Join(songsDir, name))
		add(filepath.Join(bundled, name))
	}

	for _, candidate := range candidates {
		if ok, _ := afero.Exists(r.fs, candidate); ok {
			return candidate
		}
	}

	if filepath.IsAbs(raw) {
		return raw
	}
	if name != "" {
		return filepath.Join(songsDir, name)
	}
	return songsDir
}

// Serialize converts an absolute media location into the portable form
// stored in the library document: "songs/<relative>" inside the songs
// directory, the absolute path unchanged otherwise.
func (r *Resolver) Serialize(abs string) string {
	candidate := filepath.Clean(ExpandUser(abs))
	rel, err := filepath.Rel(filepath.Clean(r.paths.SongsDir()), candidate)
	if err != nil || !filepath.IsAbs(candidate) {
		return abs
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs
	}
	if rel == "." {
		return SongsDirName
	}
	return path.Join(SongsDirName, filepath.ToSlash(rel))
}

// Exists reports whether a file or directory is present at p
func (r *Resolver) Exists(p string) bool {
	ok, _ := afero.Exists(r.fs, p)
	return ok
}

// stripSongsPrefix removes a leading "songs" segment (case-insensitive)
func stripSongsPrefix(rel string) (string, bool) {
	parts := strings.Split(filepath.Clean(rel), string(filepath.Separator))
	if len(parts) < 2 || !strings.EqualFold(parts[0], SongsDirName) {
		return "", false
	}
	return filepath.Join(parts[1:]...), true
}

func baseName(p string) string {
	name := filepath.Base(p)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
