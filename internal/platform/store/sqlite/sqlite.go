// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cfg"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/gormdoc"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Options are read from [store.drivers.sqlite].
type Options struct {
	File string `mapstructure:"file"`
}

// ApplyDefaults sets the database file name.
func (o *Options) ApplyDefaults() {
	if o.File == "" {
		o.File = "pizzabot.db"
	}
}

// Driver implements store.DocumentStore using SQLite via GORM.
type Driver struct {
	dataDir string
	file    string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(c *store.DriverConfig) (store.DocumentStore, error) {
	if c.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	var opts Options
	if err := cfg.Decode(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("sqlite driver options: %w", err)
	}

	return &Driver{
		dataDir: c.DataDir,
		file:    opts.File,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init opens the database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(d.dataDir, d.file)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db
	if err := gormdoc.SingleWriter(db); err != nil {
		return err
	}
	return gormdoc.Migrate(db)
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return gormdoc.Close(d.db)
}

// Load returns the body stored under key.
func (d *Driver) Load(ctx context.Context, key string) ([]byte, error) {
	return gormdoc.Load(ctx, d.db, key)
}

// Save upserts the body stored under key.
func (d *Driver) Save(ctx context.Context, key string, body []byte) error {
	return gormdoc.Save(ctx, d.db, key, body)
}
