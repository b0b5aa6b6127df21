package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var scratchReplacer = strings.NewReplacer(
	"..", "_",
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize makes a path component safe to join under the scratch directory.
// Reserved characters and ".." sequences become "_".
func Sanitize(component string) string {
	return scratchReplacer.Replace(component)
}

// Scratch issues process-unique temporary file paths inside one directory.
// Callers own every file they create at an issued path and must release it.
type Scratch struct {
	dir string
}

// NewScratch creates a broker rooted at dir. An empty dir falls back to os.TempDir().
func NewScratch(dir string) *Scratch {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = os.TempDir()
	}
	return &Scratch{dir: dir}
}

// Dir returns the scratch root.
func (s *Scratch) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// Path returns dir/prefix_<uuid>_<sanitized suffix>. The file is not created.
func (s *Scratch) Path(prefix, suffix string) string {
	name := prefix + "_" + uuid.NewString() + "_" + Sanitize(suffix)
	return filepath.Join(s.dir, name)
}

// With issues a path, runs fn with it and removes whatever fn left there,
// on success, error and panic alike. Removal failures are ignored.
func (s *Scratch) With(prefix, suffix string, fn func(path string) error) error {
	if s == nil {
		return ErrScratchUnavailable
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("prepare scratch dir: %w", err)
	}
	path := s.Path(prefix, suffix)
	defer release(path)
	return fn(path)
}

// WriteTemp writes data to a fresh scratch file. The returned release func
// removes it and is safe to call more than once.
func (s *Scratch) WriteTemp(prefix, suffix string, data []byte) (string, func(), error) {
	if s == nil {
		return "", func() {}, ErrScratchUnavailable
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return "", func() {}, fmt.Errorf("prepare scratch dir: %w", err)
	}
	path := s.Path(prefix, suffix)
	cleanup := func() { release(path) }
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("write scratch file: %w", err)
	}
	return path, cleanup, nil
}

func release(path string) {
	_ = os.Remove(path)
}
