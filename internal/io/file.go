package ioutils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CopyFile copies src to dst, keeping the source permissions.
//
// The destination is created or truncated. The data is flushed to disk
// before returning so a following rename publishes complete content.
//
// Example:
//
//	err := CopyFile("/tmp/tidaldl-track-1/final.flac", "/music/.Song.flac.publish-1")
func CopyFile(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	dest, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	if _, err := io.Copy(dest, source); err != nil {
		dest.Close()
		return fmt.Errorf("copy data: %w", err)
	}
	if err := dest.Sync(); err != nil {
		dest.Close()
		return fmt.Errorf("sync destination: %w", err)
	}
	return dest.Close()
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// FileSize returns the size of the regular file at path, or 0 when the
// file is missing or unreadable.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// UniquePath returns path if nothing exists there, otherwise the first
// free "stem (N).ext" sibling starting at N=2.
//
// Example:
//
//	UniquePath("/lib/Song - Artist.flac") // "/lib/Song - Artist (2).flac" when taken
func UniquePath(path string) string {
	if !Exists(path) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !Exists(candidate) {
			return candidate
		}
	}
}
