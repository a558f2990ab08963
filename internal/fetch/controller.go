// Package fetch owns the raw collection behind one list session and guards it
// against out-of-order responses.
package fetch

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// ErrStale is returned by Load when a newer load started before this one
// finished. The result was discarded.
var ErrStale = errors.New("stale fetch discarded")

// Loader fetches a complete collection.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Controller holds the last committed collection of a list session. Every
// Load gets a monotonically increasing token; only the newest in-flight load
// may commit, and starting a load cancels the context of the previous one.
type Controller[T any] struct {
	mu       sync.Mutex
	token    uint64
	cancel   context.CancelFunc
	items    []T
	loadedAt time.Time
	loaded   bool
}

// New returns an empty controller.
func New[T any]() *Controller[T] { return &Controller[T]{} }

// Load runs loader and commits its result if no newer load has started.
// On error the previous collection is kept.
func (c *Controller[T]) Load(ctx context.Context, loader Loader[T]) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.token++
	tok := c.token
	c.cancel = cancel
	c.mu.Unlock()

	items, err := loader(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.token {
		cancel()
		return nil, ErrStale
	}
	c.cancel = nil
	cancel()
	if err != nil {
		return nil, err
	}
	c.items = items
	c.loadedAt = time.Now()
	c.loaded = true
	return slices.Clone(items), nil
}

// Items returns a copy of the last committed collection.
func (c *Controller[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

// Loaded reports whether a load has ever committed, and when.
func (c *Controller[T]) Loaded() (bool, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded, c.loadedAt
}

// Token returns the token of the most recent load.
func (c *Controller[T]) Token() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Cancel aborts the in-flight load, if any. Its result will be discarded.
func (c *Controller[T]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.token++
}
