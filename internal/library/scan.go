package library

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// RemovedDirName is the folder that receives tracks no longer liked.
const RemovedDirName = "_Removed"

var audioExtensions = map[string]bool{
	".flac": true,
	".m4a":  true,
	".mp4":  true,
	".aac":  true,
	".alac": true,
	".mp3":  true,
	".wav":  true,
}

func isAudio(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// walkAudio calls fn for every visible audio file under dir. When skip is
// non-empty, that directory is not descended into.
func walkAudio(dir, skip string, fn func(path string) error) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are invisible rather than fatal.
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != dir && (path == skip || isHidden(d.Name())) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || isHidden(d.Name()) || !isAudio(path) {
			return nil
		}
		return fn(path)
	})
}

// scan maps each track ID found in the library to its files. Files
// without a readable identifier are left out.
func (r *Reconciler) scan() (map[string][]string, error) {
	local := make(map[string][]string)
	err := walkAudio(r.root, r.removedDir, func(path string) error {
		id, err := r.reader.ReadTrackID(path)
		if err != nil || id == "" {
			r.logger.Debug("untracked file", "path", path, "error", err)
			return nil
		}
		local[id] = append(local[id], path)
		return nil
	})
	return local, err
}
