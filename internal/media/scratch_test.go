package media

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "a/b\\c", want: "a_b_c"},
		{in: `x:y*z?"<>|`, want: "x_y_z_____"},
		{in: "../../etc/passwd", want: "____etc_passwd"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestSanitizeNeverLeavesReservedCharacters(t *testing.T) {
	t.Parallel()

	inputs := []string{"...", "a..b", "..../x", `C:\Users\..\evil`, "|||", "ok name"}
	for _, in := range inputs {
		got := Sanitize(in)
		assert.False(t, strings.ContainsAny(got, `/\:*?"<>|`), "reserved char in %q", got)
		assert.NotContains(t, got, "..")
	}
}

func TestScratchPathShape(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := NewScratch(dir)
	p1 := s.Path("upload", "my/file.png")
	p2 := s.Path("upload", "my/file.png")

	assert.NotEqual(t, p1, p2)
	assert.Equal(t, dir, filepath.Dir(p1))
	name := filepath.Base(p1)
	assert.True(t, strings.HasPrefix(name, "upload_"))
	assert.True(t, strings.HasSuffix(name, "_my_file.png"))
	_, err := os.Stat(p1)
	assert.True(t, os.IsNotExist(err), "Path must not create the file")
}

func TestNewScratchDefaultsToTempDir(t *testing.T) {
	t.Parallel()

	assert.Equal(t, os.TempDir(), NewScratch("  ").Dir())
}

func TestScratchWithRemovesFile(t *testing.T) {
	t.Parallel()

	s := NewScratch(t.TempDir())
	var seen string
	err := s.With("download", "img", func(path string) error {
		seen = path
		return os.WriteFile(path, []byte("data"), 0o600)
	})
	require.NoError(t, err)
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScratchWithRemovesFileOnError(t *testing.T) {
	t.Parallel()

	s := NewScratch(t.TempDir())
	boom := errors.New("boom")
	var seen string
	err := s.With("download", "img", func(path string) error {
		seen = path
		if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScratchWithRemovesFileOnPanic(t *testing.T) {
	t.Parallel()

	s := NewScratch(t.TempDir())
	var seen string
	func() {
		defer func() {
			_ = recover()
		}()
		_ = s.With("download", "img", func(path string) error {
			seen = path
			_ = os.WriteFile(path, []byte("data"), 0o600)
			panic("interrupted")
		})
	}()
	require.NotEmpty(t, seen)
	_, statErr := os.Stat(seen)
	assert.True(t, os.IsNotExist(statErr))
}

func TestScratchWithToleratesMissingFile(t *testing.T) {
	t.Parallel()

	s := NewScratch(t.TempDir())
	err := s.With("download", "never-written", func(string) error { return nil })
	assert.NoError(t, err)
}

func TestWriteTemp(t *testing.T) {
	t.Parallel()

	s := NewScratch(filepath.Join(t.TempDir(), "nested"))
	path, release, err := s.WriteTemp("upload", "a.txt", []byte("hello"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	release()
	release()
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNilScratch(t *testing.T) {
	t.Parallel()

	var s *Scratch
	assert.ErrorIs(t, s.With("a", "b", func(string) error { return nil }), ErrScratchUnavailable)
	_, release, err := s.WriteTemp("a", "b", nil)
	assert.ErrorIs(t, err, ErrScratchUnavailable)
	release()
}
