package disk

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// PackagePattern matches pacman package archives, e.g. foo-1.0-1-x86_64.pkg.tar.zst.
const PackagePattern = "*.pkg.tar.*"

// Stats is the content summary of a directory.
type Stats struct {
	Files    int
	Packages int
	Size     int64
}

// DirStats walks path and counts regular files, package archives and their
// total size. A missing directory yields zero stats.
func DirStats(root string) (Stats, error) {
	var s Stats
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		s.Files++
		s.Size += info.Size()
		if ok, _ := path.Match(PackagePattern, d.Name()); ok {
			s.Packages++
		}
		return nil
	})
	return s, err
}

// Ensure creates every directory that does not exist yet.
func Ensure(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", d, err)
		}
	}
	return nil
}

// Clear empties dir and recreates it. It reports false without touching
// anything when dir does not exist.
func Clear(dir string) (bool, error) {
	if _, err := os.Stat(dir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(dir); err != nil {
		// Whatever could not be removed stays, the directory itself must not
		// go missing.
		os.MkdirAll(dir, 0755)
		return true, fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return true, fmt.Errorf("failed to recreate %s: %w", dir, err)
	}
	return true, nil
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.IBytes(uint64(b))
}
