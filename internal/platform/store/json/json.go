// Package json implements a JSON file-based persistence driver.
// One file per document key; writes are atomic (temp file + fsync + rename)
// and guarded by an in-process lock.
package json

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cfg"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

func init() {
	store.Register("json", NewDriver)
}

// Options are read from [store.drivers.json].
type Options struct {
	// FileMode is the permission set on document files.
	FileMode uint32 `mapstructure:"file_mode"`
}

// ApplyDefaults sets owner-only permissions.
func (o *Options) ApplyDefaults() {
	if o.FileMode == 0 {
		o.FileMode = 0600
	}
}

// Driver implements store.DocumentStore using JSON files.
type Driver struct {
	dataDir  string
	fileMode os.FileMode
	mu       sync.RWMutex
	closed   bool

	// docs caches file bodies loaded at Init and written since.
	docs map[string][]byte
}

// NewDriver creates a new JSON driver instance.
func NewDriver(c *store.DriverConfig) (store.DocumentStore, error) {
	if c.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for json driver")
	}

	var opts Options
	if err := cfg.Decode(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("json driver options: %w", err)
	}

	return &Driver{
		dataDir:  c.DataDir,
		fileMode: os.FileMode(opts.FileMode),
		docs:     make(map[string][]byte),
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "json"
}

// Init creates the data directory and loads every existing document file.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		return fmt.Errorf("failed to list data dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		key := strings.TrimSuffix(name, ".json")
		if !store.ValidKey(key) {
			continue
		}
		body, err := os.ReadFile(filepath.Join(d.dataDir, name))
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", name, err)
		}
		d.docs[key] = body
	}

	return nil
}

// Close releases resources.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Load returns the body stored under key.
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

// Save atomically writes body to <data_dir>/<key>.json.
func (d *Driver) Save(ctx context.Context, key string, body []byte) error {
	if !store.ValidKey(key) {
		return fmt.Errorf("%w: %q", store.ErrInvalidKey, key)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}
	if err := store.WriteFileAtomic(filepath.Join(d.dataDir, key+".json"), body, d.fileMode); err != nil {
		return err
	}
	d.docs[key] = append([]byte(nil), body...)
	return nil
}
