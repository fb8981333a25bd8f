// Package buildlog records the transcript of a build as a zstd compressed
// file, one per project and version, replaced on every build.
package buildlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Path returns the transcript location for a project build. Separators in
// project and version are replaced, so the file always lands in dir.
func Path(dir, project, version string) string {
	name := safeName(project)
	if version != "" {
		name += "-" + safeName(version)
	}
	return filepath.Join(dir, name+".log.zst")
}

var unsafeChars = strings.NewReplacer("/", "_", "\\", "_", "\x00", "_")

func safeName(s string) string {
	s = unsafeChars.Replace(s)
	if s == "." || s == ".." || s == "" {
		s = strings.Repeat("_", max(len(s), 1))
	}
	return s
}

// Writer compresses everything written to it into the transcript file.
// Safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	zw      *zstd.Encoder
	written int64
}

// Create truncates or creates the transcript at path.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create build log: %w", err)
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	return &Writer{path: path, f: f, zw: zw}, nil
}

func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.zw.Write(p)
	w.written += int64(n)
	return n, err
}

// Path is the transcript file.
func (w *Writer) Path() string {
	return w.path
}

// Written is the number of uncompressed bytes recorded so far.
func (w *Writer) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Close flushes the compressor and closes the file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.zw.Close(); err != nil {
		w.f.Close()
		return fmt.Errorf("failed to finish build log: %w", err)
	}
	return w.f.Close()
}

// Copy decompresses the transcript at path into dst.
func Copy(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open build log: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	if _, err := io.Copy(dst, zr); err != nil {
		return fmt.Errorf("failed to read build log: %w", err)
	}
	return nil
}
