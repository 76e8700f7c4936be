// Package artifact writes output files so that a file under its final
// name is always complete: the content goes to a temporary file in the
// same directory first and is renamed into place only on success.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// TempPath returns a unique hidden path next to 'path' that keeps its
// extension (external tools pick the container format by it).
func TempPath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp%s", name, uuid.NewString(), ext))
}

// Produce calls 'fn' with a temporary path and moves the result to
// 'path' if fn succeeds. On failure the temporary file is removed and
// an existing file at 'path' is left untouched.
func Produce(path string, fn func(tmpPath string) error) (_err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("unable to create the directory for '%s': %w", path, err)
	}
	tmpPath := TempPath(path)
	defer func() {
		if _err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := fn(tmpPath); err != nil {
		return err
	}
	if _, err := os.Stat(tmpPath); err != nil {
		return fmt.Errorf("the producer did not create '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("unable to move '%s' to '%s': %w", tmpPath, path, err)
	}
	return nil
}

// WriteFile is Produce for content written by the caller itself.
func WriteFile(path string, fn func(f *os.File) error) error {
	return Produce(path, func(tmpPath string) error {
		f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("unable to create '%s': %w", tmpPath, err)
		}
		if err := fn(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return fmt.Errorf("unable to sync '%s': %w", tmpPath, err)
		}
		return f.Close()
	})
}

// Exists reports whether a regular file exists at the path.
func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

// NonEmpty reports whether a regular non-empty file exists at the path.
func NonEmpty(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular() && st.Size() > 0
}

// CopyFile copies 'src' to 'dst' atomically.
func CopyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("unable to open '%s': %w", src, err)
	}
	defer in.Close()
	return WriteFile(dst, func(f *os.File) error {
		if _, err := f.ReadFrom(in); err != nil {
			return fmt.Errorf("unable to copy '%s' to '%s': %w", src, dst, err)
		}
		return nil
	})
}
