package library

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	ioutils "github.com/handiism/tidal-downloader/internal/io"
	"github.com/handiism/tidal-downloader/internal/model"
)

// inferredNamesFile lists, relative to the root, the files whose names
// were derived from their previous name rather than from tags. Without it
// an untagged "Title - Artist" file would be read back as "Artist - Title"
// and renamed again on every run.
const inferredNamesFile = ".inferred_names"

// NameStats counts what a canonicalization pass did.
type NameStats struct {
	Renamed          int
	Inferred         int
	Collisions       int
	Skipped          int
	SkippedNoPattern int
}

func (s *NameStats) add(o NameStats) {
	s.Renamed += o.Renamed
	s.Inferred += o.Inferred
	s.Collisions += o.Collisions
	s.Skipped += o.Skipped
	s.SkippedNoPattern += o.SkippedNoPattern
}

var stemDelimiter = regexp.MustCompile(`\s*-\s*`)

// inferFromStem splits an "Artist - Title" stem.
func inferFromStem(stem string) (artist, title string, ok bool) {
	parts := stemDelimiter.Split(stem, 2)
	if len(parts) != 2 {
		return "", "", false
	}
	artist = model.SanitizeFileName(strings.TrimSpace(parts[0]))
	title = model.SanitizeFileName(strings.TrimSpace(parts[1]))
	if artist == "" || title == "" {
		return "", "", false
	}
	return artist, title, true
}

// firstArtist keeps the first name of a comma-separated artist list.
func firstArtist(artists string) string {
	first, _, _ := strings.Cut(artists, ",")
	return strings.TrimSpace(first)
}

// isCanonical reports whether name is stem+ext or a collision-suffixed
// "stem (N)ext" variant of it.
func isCanonical(name, stem, ext string) bool {
	if name == stem+ext {
		return true
	}
	rest, ok := strings.CutPrefix(name, stem+" (")
	if !ok {
		return false
	}
	digits, ok := strings.CutSuffix(rest, ")"+ext)
	if !ok || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// flatten moves every audio file nested below the root (outside the
// removed folder) into the root, then removes empty folders bottom-up.
func (r *Reconciler) flatten() int {
	var nested []string
	_ = walkAudio(r.root, r.removedDir, func(path string) error {
		if filepath.Dir(path) != r.root {
			nested = append(nested, path)
		}
		return nil
	})

	moved := 0
	for _, path := range nested {
		dest := ioutils.UniquePath(filepath.Join(r.root, filepath.Base(path)))
		if err := ioutils.MoveFile(path, dest); err != nil {
			r.logger.Warn("flatten move failed", "path", path, "error", err)
			continue
		}
		r.cache.Rename(path, dest)
		moved++
	}
	r.flushCache()

	r.removeEmptyDirs()
	return moved
}

func (r *Reconciler) removeEmptyDirs() {
	var dirs []string
	_ = filepath.WalkDir(r.root, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() && path != r.root && path != r.removedDir {
			dirs = append(dirs, path)
		}
		return nil
	})
	// Deepest first, so parents empty out after their children.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err == nil && len(entries) == 0 {
			_ = os.Remove(dir)
		}
	}
}

// canonicalize renames audio files under dir to "Title - Artist.ext".
func (r *Reconciler) canonicalize(dir, skip string) NameStats {
	var stats NameStats
	var files []string
	_ = walkAudio(dir, skip, func(path string) error {
		files = append(files, path)
		return nil
	})

	inferred := r.loadInferred()
	changed := false

	for _, path := range files {
		name := filepath.Base(path)
		ext := filepath.Ext(name)
		rel := r.rel(path)

		var title, artist string
		if id, err := r.reader.ReadIdentity(path); err == nil {
			title = model.SanitizeFileName(strings.TrimSpace(id.Title))
			artist = model.SanitizeFileName(firstArtist(id.Artist))
		}

		fromName := title == "" || artist == ""
		if fromName {
			if inferred[rel] {
				continue
			}
			var ok bool
			artist, title, ok = inferFromStem(strings.TrimSuffix(name, ext))
			if !ok {
				stats.Skipped++
				stats.SkippedNoPattern++
				continue
			}
		}

		stem := title + " - " + artist
		if isCanonical(name, stem, ext) {
			continue
		}

		dest := filepath.Join(filepath.Dir(path), stem+ext)
		if ioutils.Exists(dest) {
			dest = ioutils.UniquePath(dest)
			stats.Collisions++
		}
		if err := os.Rename(path, dest); err != nil {
			r.logger.Warn("rename failed", "path", path, "error", err)
			stats.Skipped++
			continue
		}
		r.cache.Rename(path, dest)
		stats.Renamed++
		if fromName {
			stats.Inferred++
			delete(inferred, rel)
			inferred[r.rel(dest)] = true
			changed = true
		}
	}

	if changed {
		r.saveInferred(inferred)
	}
	r.flushCache()
	return stats
}

func (r *Reconciler) rel(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func (r *Reconciler) loadInferred() map[string]bool {
	set := make(map[string]bool)
	f, err := os.Open(filepath.Join(r.root, inferredNamesFile))
	if err != nil {
		return set
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			set[line] = true
		}
	}
	return set
}

func (r *Reconciler) saveInferred(set map[string]bool) {
	names := make([]string, 0, len(set))
	for name := range set {
		if ioutils.Exists(filepath.Join(r.root, filepath.FromSlash(name))) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	data := strings.Join(names, "\n")
	if data != "" {
		data += "\n"
	}
	if err := ioutils.WriteFileAtomic(filepath.Join(r.root, inferredNamesFile), []byte(data), 0o644); err != nil {
		r.logger.Warn("write inferred names", "error", err)
	}
}
