package media

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNoBackend is returned by Chain.Remux when no backend is available.
var ErrNoBackend = errors.New("no remux backend available")

// Remuxer lifts an audio bitstream out of one container into another
// without re-encoding.
type Remuxer interface {
	Name() string
	// Available is fixed for the lifetime of the backend.
	Available() bool
	Remux(ctx context.Context, src, dst string) error
}

// Chain tries backends in order; the first one that produces a
// non-empty dst wins.
type Chain struct {
	backends []Remuxer
}

// NewChain builds a chain that tries backends in the given order.
func NewChain(backends ...Remuxer) *Chain {
	return &Chain{backends: backends}
}

// Available reports whether at least one backend can run.
func (c *Chain) Available() bool {
	for _, b := range c.backends {
		if b.Available() {
			return true
		}
	}
	return false
}

// Remux writes dst from src and returns the name of the backend that
// succeeded. A failed attempt never leaves dst behind. When every
// backend fails the returned error joins each backend's diagnostic.
func (c *Chain) Remux(ctx context.Context, src, dst string) (string, error) {
	if err := removeIfExists(dst); err != nil {
		return "", err
	}

	var errs []error
	for _, b := range c.backends {
		if !b.Available() {
			continue
		}
		err := b.Remux(ctx, src, dst)
		if err == nil && nonEmpty(dst) {
			return b.Name(), nil
		}
		if err == nil {
			err = errors.New("produced no output")
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		if rmErr := removeIfExists(dst); rmErr != nil {
			errs = append(errs, rmErr)
		}
	}
	if len(errs) == 0 {
		return "", ErrNoBackend
	}
	return "", errors.Join(errs...)
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
