package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempPath(t *testing.T) {
	p := TempPath(filepath.Join("out", "video.mp4"))
	assert.Equal(t, "out", filepath.Dir(p))
	assert.True(t, strings.HasPrefix(filepath.Base(p), ".video."))
	assert.Equal(t, ".mp4", filepath.Ext(p))
	assert.NotEqual(t, p, TempPath(filepath.Join("out", "video.mp4")))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "a.txt")

	t.Run("success", func(t *testing.T) {
		err := WriteFile(path, func(f *os.File) error {
			_, err := f.WriteString("hello")
			return err
		})
		require.NoError(t, err)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))
		assert.True(t, Exists(path))
		assert.True(t, NonEmpty(path))
	})

	t.Run("failure_keeps_previous_content", func(t *testing.T) {
		err := WriteFile(path, func(f *os.File) error {
			_, _ = f.WriteString("half-written")
			return errors.New("interrupted")
		})
		require.Error(t, err)
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(b))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "the temporary file must be removed")
	})
}

func TestProduce_NothingProduced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp4")
	err := Produce(path, func(tmpPath string) error { return nil })
	require.Error(t, err)
	assert.False(t, Exists(path))
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o644))
	dst := filepath.Join(dir, "dst.wav")
	require.NoError(t, CopyFile(dst, src))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(b))

	assert.Error(t, CopyFile(dst, filepath.Join(dir, "missing.wav")))
	assert.False(t, NonEmpty(filepath.Join(dir, "missing.wav")))
}
