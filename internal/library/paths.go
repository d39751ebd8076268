// Package library owns the song collection: path resolution, the library
// document, bootstrap of the writable data root, and the indexed views the
// transport reads from.
package library

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// LibraryFileName is the song list document inside a library root
	LibraryFileName = "song_data.json"

	// SongsDirName is both the media directory name and the portable prefix
	// written into the library document
	SongsDirName = "songs"

	// CacheDirName holds derived thumbnails and audio tracks
	CacheDirName = ".cache"

	// EnvDataDir overrides the library root location
	EnvDataDir = "REEL_DATA_DIR"

	appName = "reel"
)

// Paths locates the writable library root and the read-only install root
type Paths struct {
	DataRoot    string // Writable root holding the document, media and cache
	InstallRoot string // Directory holding bundled defaults
}

func (p Paths) SongsDir() string           { return filepath.Join(p.DataRoot, SongsDirName) }
func (p Paths) CacheDir() string           { return filepath.Join(p.DataRoot, CacheDirName) }
func (p Paths) LibraryFile() string        { return filepath.Join(p.DataRoot, LibraryFileName) }
func (p Paths) BundledSongsDir() string    { return filepath.Join(p.InstallRoot, SongsDirName) }
func (p Paths) BundledLibraryFile() string { return filepath.Join(p.InstallRoot, LibraryFileName) }

// DefaultPaths picks the library root: REEL_DATA_DIR, then configuredRoot,
// then the install directory when it carries a library document (a
// development checkout), then the per-user data directory.
func DefaultPaths(configuredRoot string) Paths {
	install := installRoot()
	paths := Paths{InstallRoot: install}

	switch {
	case os.Getenv(EnvDataDir) != "":
		paths.DataRoot = ExpandUser(os.Getenv(EnvDataDir))
	case configuredRoot != "":
		paths.DataRoot = ExpandUser(configuredRoot)
	case fileExists(filepath.Join(install, LibraryFileName)):
		paths.DataRoot = install
	default:
		paths.DataRoot = platformDataRoot()
	}
	return paths
}

// installRoot returns the directory of the running executable
func installRoot() string {
	exe, err := os.Executable()
	if err != nil {
		wd, _ := os.Getwd()
		return wd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// platformDataRoot returns the per-user data directory for the current OS
func platformDataRoot() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "share")
		}
		return filepath.Join(base, appName)
	}
}

// ExpandUser expands a leading ~ to the home directory
func ExpandUser(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
