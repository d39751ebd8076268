package library

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Bootstrap materializes bundled defaults into the writable library root
// and rewrites stale video references in the user library document.
// Copy failures are logged and skipped.
func Bootstrap(fs afero.Fs, resolver *Resolver, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	paths := resolver.Paths()

	if err := fs.MkdirAll(paths.SongsDir(), 0755); err != nil {
		return err
	}

	if paths.BundledLibraryFile() != paths.LibraryFile() {
		userExists, _ := afero.Exists(fs, paths.LibraryFile())
		bundledExists, _ := afero.Exists(fs, paths.BundledLibraryFile())
		if bundledExists && !userExists {
			if err := copyFile(fs, paths.BundledLibraryFile(), paths.LibraryFile()); err != nil {
				logger.Warn("failed to copy bundled library", "error", err)
			}
		}
	}

	if paths.BundledSongsDir() != paths.SongsDir() {
		copyBundledSongs(fs, paths, logger)
	}

	return normalizeDocument(fs, resolver, logger)
}

func copyBundledSongs(fs afero.Fs, paths Paths, logger *slog.Logger) {
	entries, err := afero.ReadDir(fs, paths.BundledSongsDir())
	if err != nil {
		return
	}
	for _, entry := range entries {
		src := filepath.Join(paths.BundledSongsDir(), entry.Name())
		dst := filepath.Join(paths.SongsDir(), entry.Name())
		if ok, _ := afero.Exists(fs, dst); ok {
			continue
		}
		var err error
		if entry.IsDir() {
			err = copyTree(fs, src, dst)
		} else {
			err = copyFile(fs, src, dst)
		}
		if err != nil {
			logger.Warn("failed to copy bundled song", "path", src, "error", err)
		}
	}
}

// normalizeDocument rewrites every entry that resolves to an existing file
// with its portable form. Unreadable documents are left for Load to report.
func normalizeDocument(fs afero.Fs, resolver *Resolver, logger *slog.Logger) error {
	path := resolver.Paths().LibraryFile()
	doc, err := ReadDocument(fs, path)
	if err != nil {
		return nil
	}

	changed := false
	for i, entry := range doc.Songs {
		resolved := resolver.Resolve(entry.PathToVideo)
		portable := resolver.Serialize(resolved)
		if portable != entry.PathToVideo && resolver.Exists(resolved) {
			doc.Songs[i].PathToVideo = portable
			changed = true
		}
	}
	if !changed {
		return nil
	}

	logger.Info("normalized library paths", "path", path)
	if err := WriteDocument(fs, path, doc); err != nil {
		logger.Warn("failed to write normalized library", "error", err)
	}
	return nil
}

// copyFile copies through a hidden sibling of dst and renames it into
// place, so a failed copy never leaves a truncated dst behind.
func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	tmp := partialPath(dst)
	out, err := fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, dst); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}

func partialPath(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".partial")
}

func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return fs.MkdirAll(target, 0755)
		}
		return copyFile(fs, path, target)
	})
}

// CopyFile copies src to dst on fs, preserving mode and modification time
func CopyFile(fs afero.Fs, src, dst string) error {
	return copyFile(fs, src, dst)
}
