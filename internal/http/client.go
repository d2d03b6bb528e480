package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

// RetryPolicy controls how failed transfers are retried.
//
// The wait before retry n (0-based) is Cooldown * Exponent^n, so the
// default policy waits 0.2s, 0.8s, 3.2s, ...
type RetryPolicy struct {
	MaxRetries int
	Cooldown   time.Duration
	Exponent   float64
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 7,
		Cooldown:   200 * time.Millisecond,
		Exponent:   4.0,
	}
}

// Options configures a Client.
type Options struct {
	// Timeout bounds metadata, HEAD and cover requests. Segment
	// transfers are bounded by their context only.
	Timeout   time.Duration
	UserAgent string
	Retry     RetryPolicy
}

// Client wraps HTTP operations used by the downloader.
//
// Client provides:
//   - Configured User-Agent header
//   - Bounded timeouts for small requests
//   - Segment downloads with retry and progress tracking
//   - File size retrieval via HEAD requests
//
// Example usage:
//
//	client := NewClient(Options{})
//
//	// Fetch cover bytes
//	data, err := client.Get(ctx, coverURL)
//
//	// Download a multi-part stream as one file
//	err = client.DownloadParts(ctx, stream.SegmentURLs(), "/tmp/x/download.m4a.part", 1<<20,
//	    func(written, total int64) { fmt.Printf("%d/%d\r", written, total) })
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	userAgent    string
	retry        RetryPolicy
}

// NewClient creates a new HTTP client. Zero-valued options fall back to
// a 60 second timeout, the "tidal-dl" User-Agent and DefaultRetryPolicy.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "tidal-dl"
	}
	if opts.Retry.Exponent <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	return &Client{
		httpClient:   &http.Client{Timeout: opts.Timeout},
		streamClient: &http.Client{},
		userAgent:    opts.UserAgent,
		retry:        opts.Retry,
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// OnUpdate receives the bytes written so far and the expected total
// (-1 when unknown).
type ProgressWriter struct {
	Writer   io.Writer
	Total    int64
	Written  int64
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// Do sends req with the configured User-Agent on the bounded client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.httpClient.Do(req)
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *StatusError when the response status is not 200 OK.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return io.ReadAll(resp.Body)
}

// GetWithRetry is Get retried according to the client's RetryPolicy.
func (c *Client) GetWithRetry(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := c.withRetry(ctx, func() error {
		var err error
		data, err = c.Get(ctx, url)
		return err
	})
	return data, err
}

// GetFileSize returns the size of a remote file via a HEAD request.
//
// Returns an error when the request fails or the server sends no
// Content-Length.
func (c *Client) GetFileSize(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("no Content-Length header for %s", url)
	}

	return resp.ContentLength, nil
}

// DownloadParts downloads every URL in order and concatenates the bodies
// into destPath, treating them as one logical file.
//
// Each part is retried on its own according to the RetryPolicy; a retried
// part restarts from the offset where it began. partSize is the copy
// buffer size (<= 0 means 1 MiB). onProgress receives cumulative bytes
// written and the running sum of known part lengths.
func (c *Client) DownloadParts(ctx context.Context, urls []string, destPath string, partSize int, onProgress func(written, total int64)) error {
	if len(urls) == 0 {
		return fmt.Errorf("no urls to download")
	}
	if partSize <= 0 {
		partSize = 1 << 20
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, partSize)
	var written, total int64
	for i, url := range urls {
		offset := written
		err := c.withRetry(ctx, func() error {
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				return err
			}
			if err := file.Truncate(offset); err != nil {
				return err
			}
			n, length, err := c.copyPart(ctx, url, file, buf, func(partWritten, partTotal int64) {
				if onProgress != nil {
					onProgress(offset+partWritten, total+max(partTotal, 0))
				}
			})
			written = offset + n
			if err == nil && length > 0 {
				total += length
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(urls), err)
		}
	}

	return file.Sync()
}

func (c *Client) copyPart(ctx context.Context, url string, w io.Writer, buf []byte, onProgress func(written, total int64)) (int64, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	pw := &ProgressWriter{Writer: w, Total: resp.ContentLength, OnUpdate: onProgress}
	n, err := io.CopyBuffer(pw, resp.Body, buf)
	if err == nil && resp.ContentLength > 0 && n != resp.ContentLength {
		err = fmt.Errorf("short read: got %d of %d bytes", n, resp.ContentLength)
	}
	return n, resp.ContentLength, err
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for tries := 0; ; tries++ {
		if err = fn(); err == nil {
			return nil
		}
		if tries >= c.retry.MaxRetries || ctx.Err() != nil || !retryable(err) {
			return err
		}
		c.waitForRetry(ctx, tries)
	}
}

// retryable is false for client errors other than 429.
func retryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.StatusCode
		return code == http.StatusTooManyRequests || code < 400 || code >= 500
	}
	return true
}

func (c *Client) waitForRetry(ctx context.Context, tries int) {
	cooldown := float64(c.retry.Cooldown) * math.Pow(c.retry.Exponent, float64(tries))
	select {
	case <-ctx.Done():
	case <-time.After(time.Duration(cooldown)):
	}
}
