// Package mirror implements a SQLite + JSON mirror persistence driver.
// SQLite is the source of truth; JSON is a one-way export so an operator can
// inspect bot state with a text editor. The program never reads the export.
package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cfg"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/gormdoc"
)

func init() {
	store.Register("mirror", NewDriver)
}

// Options are read from [store.drivers.mirror].
type Options struct {
	File string `mapstructure:"file"`

	// IncludeOptOuts exports the opt-out document. Off by default: it lists
	// people who asked not to be contacted.
	IncludeOptOuts bool `mapstructure:"include_opt_outs"`
}

// ApplyDefaults sets the database file name.
func (o *Options) ApplyDefaults() {
	if o.File == "" {
		o.File = "pizzabot.db"
	}
}

// Driver implements store.DocumentStore with SQLite + JSON mirror.
type Driver struct {
	dataDir string
	opts    Options
	db      *gorm.DB
	mu      sync.Mutex // serializes JSON export writes
}

// NewDriver creates a new mirror driver instance.
func NewDriver(c *store.DriverConfig) (store.DocumentStore, error) {
	if c.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for mirror driver")
	}

	var opts Options
	if err := cfg.Decode(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("mirror driver options: %w", err)
	}

	return &Driver{
		dataDir: c.DataDir,
		opts:    opts,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "mirror"
}

func (d *Driver) mirrorDir() string {
	return filepath.Join(d.dataDir, "mirror")
}

// Init opens SQLite and exports the current state to JSON.
func (d *Driver) Init(ctx context.Context) error {
	if err := os.MkdirAll(d.mirrorDir(), 0700); err != nil {
		return fmt.Errorf("failed to create mirror dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(d.dataDir, d.opts.File)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db
	if err := gormdoc.SingleWriter(db); err != nil {
		return err
	}
	if err := gormdoc.Migrate(db); err != nil {
		return err
	}

	if err := d.exportAll(ctx); err != nil {
		return fmt.Errorf("failed to export mirror: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return gormdoc.Close(d.db)
}

// Load reads from SQLite only.
func (d *Driver) Load(ctx context.Context, key string) ([]byte, error) {
	return gormdoc.Load(ctx, d.db, key)
}

// Save writes to SQLite, then refreshes the JSON export for key.
func (d *Driver) Save(ctx context.Context, key string, body []byte) error {
	if err := gormdoc.Save(ctx, d.db, key, body); err != nil {
		return err
	}
	return d.export(key, body)
}

func (d *Driver) exported(key string) bool {
	return key != store.KeyOptOuts || d.opts.IncludeOptOuts
}

func (d *Driver) exportAll(ctx context.Context) error {
	var docs []gormdoc.Document
	if err := d.db.WithContext(ctx).Find(&docs).Error; err != nil {
		return err
	}
	for _, doc := range docs {
		if err := d.export(doc.Key, doc.Body); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) export(key string, body []byte) error {
	if !d.exported(key) {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return store.WriteFileAtomic(filepath.Join(d.mirrorDir(), key+".json"), body, 0600)
}
