package ioutils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Indirection points for fault injection in tests.
var (
	rename   = os.Rename
	copyFile = CopyFile
)

// ReplaceFile moves src over dst so that dst is either the complete
// previous file, the complete new file, or absent. It never leaves a
// truncated file at dst.
//
// A same-filesystem rename is tried first. When the rename fails with
// EXDEV (src and dst on different devices), src is copied to a hidden
// sibling of dst, which is then renamed over dst, and src is removed.
// An existing directory at dst is an error; an existing plain file is
// replaced.
//
// Example:
//
//	// Publish a finished download from the temp workspace
//	err := ioutils.ReplaceFile(filepath.Join(tmp, "final.flac"), "/music/Song.flac")
func ReplaceFile(src, dst string) error {
	if info, err := os.Lstat(dst); err == nil && info.IsDir() {
		return fmt.Errorf("replace %s: destination is a directory", dst)
	}

	err := rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return fmt.Errorf("move file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".publish-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	staging := tmp.Name()
	tmp.Close()

	if err := copyFile(src, staging); err != nil {
		os.Remove(staging)
		return fmt.Errorf("copy file across devices: %w", err)
	}
	if err := rename(staging, dst); err != nil {
		os.Remove(staging)
		return fmt.Errorf("move staged file: %w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// MoveFile creates the parent folder of dst and publishes src there.
func MoveFile(src, dst string) error {
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	return ReplaceFile(src, dst)
}

// WriteFileAtomic writes data to a temporary sibling of path and renames
// it into place, so readers never observe a partially written file.
//
// Example:
//
//	err := ioutils.WriteFileAtomic("/music/Liked/_quality_cache.json", data, 0o644)
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return err
	}
	if err := rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
