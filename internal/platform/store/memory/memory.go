// Package memory implements an in-process document driver. Nothing survives a
// restart; it backs tests and throwaway dev runs.
package memory

import (
	"context"
	"sync"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

func init() {
	store.Register("memory", func(*store.DriverConfig) (store.DocumentStore, error) {
		return New(), nil
	})
}

// Driver keeps document bodies in a map.
type Driver struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	closed bool
}

// New returns an empty, ready-to-use memory driver.
func New() *Driver {
	return &Driver{docs: make(map[string][]byte)}
}

// Name returns the driver name.
func (d *Driver) Name() string { return "memory" }

// Init is a no-op.
func (d *Driver) Init(ctx context.Context) error { return nil }

// Close marks the driver closed.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Load returns a copy of the body stored under key.
func (d *Driver) Load(ctx context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	body, ok := d.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

// Save stores a copy of body under key.
func (d *Driver) Save(ctx context.Context, key string, body []byte) error {
	if !store.ValidKey(key) {
		return store.ErrInvalidKey
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	d.docs[key] = append([]byte(nil), body...)
	return nil
}
