// Package placement resolves hold ids to physical LED indices for one
// board layout and size. Lookups go through a single-slot Cache in front of
// a Fetcher (a YAML data file or Redis).
package placement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chaz8081/holdlight/internal/board"
)

// ErrNotFound is returned when a store has no placement data for a key.
var ErrNotFound = errors.New("placement: no LED placements for layout")

// Map maps a hold id to its LED index.
type Map map[int]int

// Key identifies a placement table.
type Key struct {
	Family   board.Family
	LayoutID int
	SizeID   int
}

// KeyFor returns the placement key of a board configuration.
func KeyFor(d board.Details) Key {
	return Key{Family: d.Family, LayoutID: d.LayoutID, SizeID: d.SizeID}
}

func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%d", k.Family, k.LayoutID, k.SizeID)
}

// Fetcher loads placement data. A nil Map with a nil error means the
// store has nothing for the key.
type Fetcher interface {
	Fetch(ctx context.Context, key Key) (Map, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key Key) (Map, error)

func (f FetcherFunc) Fetch(ctx context.Context, key Key) (Map, error) { return f(ctx, key) }

// HoldSource loads the hold list (with mirror ids) of a layout.
type HoldSource interface {
	Holds(ctx context.Context, family board.Family, layoutID int) ([]board.Hold, error)
}

// Cache memoizes the most recent successful fetch. One Cache belongs to one
// board-control session; a new Cache starts empty.
type Cache struct {
	mu    sync.Mutex
	key   string
	value Map
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Get returns the placements for key, calling fetcher only when the slot
// holds a different key. Failed or empty fetches leave the slot untouched.
func (c *Cache) Get(ctx context.Context, key Key, fetcher Fetcher) (Map, error) {
	k := key.String()

	c.mu.Lock()
	if c.value != nil && c.key == k {
		v := c.value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	slog.Debug("[placement] cache miss", "key", k)
	v, err := fetcher.Fetch(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("placement: fetch %s: %w", k, err)
	}
	if v == nil {
		return nil, fmt.Errorf("placement: fetch %s: %w", k, ErrNotFound)
	}

	c.mu.Lock()
	c.key, c.value = k, v
	c.mu.Unlock()
	return v, nil
}
