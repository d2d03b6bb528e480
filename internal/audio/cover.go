package audio

import (
	"context"
	"sync"
)

// CoverFetcher downloads raw image bytes.
type CoverFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// CoverResizer shrinks an image to fit within maxSize pixels.
type CoverResizer interface {
	Fit(data []byte, maxSize int) ([]byte, error)
}

// CoverCache holds cover art keyed by catalog cover ID for the lifetime
// of one batch or sync run.
//
// The fetch runs outside the lock, so two workers asking for the same
// missing cover may both download it; the last one stored wins.
//
// Example:
//
//	covers := audio.NewCoverCache(httpClient, catalog.CoverURL)
//	data, err := covers.Get(ctx, album.Cover)
type CoverCache struct {
	fetcher CoverFetcher
	urlFor  func(coverID string) string
	resizer CoverResizer
	maxSize int

	mu      sync.Mutex
	entries map[string][]byte
}

// NewCoverCache creates an empty cache. urlFor maps a cover ID to the
// image URL to download.
func NewCoverCache(fetcher CoverFetcher, urlFor func(coverID string) string) *CoverCache {
	return &CoverCache{
		fetcher: fetcher,
		urlFor:  urlFor,
		entries: make(map[string][]byte),
	}
}

// WithResize makes the cache downscale fetched covers to maxSize pixels.
func (c *CoverCache) WithResize(resizer CoverResizer, maxSize int) *CoverCache {
	c.resizer = resizer
	c.maxSize = maxSize
	return c
}

// Get returns the cover for coverID, downloading it on first use.
// An empty coverID yields (nil, nil).
func (c *CoverCache) Get(ctx context.Context, coverID string) ([]byte, error) {
	if coverID == "" {
		return nil, nil
	}

	c.mu.Lock()
	data, ok := c.entries[coverID]
	c.mu.Unlock()
	if ok {
		return data, nil
	}

	data, err := c.fetcher.Get(ctx, c.urlFor(coverID))
	if err != nil {
		return nil, err
	}
	if c.resizer != nil && c.maxSize > 0 {
		if small, err := c.resizer.Fit(data, c.maxSize); err == nil {
			data = small
		}
	}

	c.mu.Lock()
	c.entries[coverID] = data
	c.mu.Unlock()
	return data, nil
}

// Len reports how many covers are cached.
func (c *CoverCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
