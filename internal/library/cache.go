package library

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	ioutils "github.com/handiism/tidal-downloader/internal/io"
)

// CacheFileName is the quality cache document kept in the library root.
const CacheFileName = "_quality_cache.json"

type cacheEntry struct {
	MTime   float64 `json:"mtime"`
	Size    int64   `json:"size"`
	Quality string  `json:"quality"`
}

// QualityCache maps absolute file paths to the quality recorded in their
// tags, valid while the file's mtime and size are unchanged.
//
// Stores are written through to disk at once. Renames are batched by the
// caller and written with Flush once a phase is done, so a crash leaves a
// cache that is a valid subset of the truth.
type QualityCache struct {
	path    string
	entries map[string]cacheEntry
	dirty   bool
}

// LoadQualityCache reads the cache at path. A missing or unreadable
// document yields an empty cache.
func LoadQualityCache(path string) *QualityCache {
	c := &QualityCache{path: path, entries: make(map[string]cacheEntry)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil || c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	return c
}

func stamp(info fs.FileInfo) (float64, int64) {
	return float64(info.ModTime().UnixNano()) / 1e9, info.Size()
}

// Lookup returns the cached quality for path if the entry still matches
// info.
func (c *QualityCache) Lookup(path string, info fs.FileInfo) (string, bool) {
	e, ok := c.entries[path]
	if !ok {
		return "", false
	}
	mtime, size := stamp(info)
	if e.MTime != mtime || e.Size != size {
		return "", false
	}
	return e.Quality, true
}

// Store records quality for path and persists the cache.
func (c *QualityCache) Store(path string, info fs.FileInfo, quality string) error {
	mtime, size := stamp(info)
	c.entries[path] = cacheEntry{MTime: mtime, Size: size, Quality: quality}
	return c.Save()
}

// Rename moves an entry along with its file. Renames keep mtime and size,
// so the entry stays valid. The change is held in memory until Flush.
func (c *QualityCache) Rename(from, to string) {
	if e, ok := c.entries[from]; ok {
		delete(c.entries, from)
		c.entries[to] = e
		c.dirty = true
	}
}

// Flush saves the cache if a Rename or Prune changed it since the last
// save.
func (c *QualityCache) Flush() error {
	if !c.dirty {
		return nil
	}
	return c.Save()
}

// Prune drops entries whose files no longer exist and returns how many
// were removed.
func (c *QualityCache) Prune() int {
	n := 0
	for path := range c.entries {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			delete(c.entries, path)
			c.dirty = true
			n++
		}
	}
	return n
}

// Len returns the number of entries.
func (c *QualityCache) Len() int { return len(c.entries) }

// Save writes the cache atomically.
func (c *QualityCache) Save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutils.WriteFileAtomic(c.path, data, 0o644); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
