// Package postgres implements a PostgreSQL persistence driver using GORM,
// for deployments that keep bot state next to other services.
package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/cfg"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store/gormdoc"
)

func init() {
	store.Register("postgres", NewDriver)
}

// Options are read from [store.drivers.postgres].
type Options struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ApplyDefaults sets pool limits.
func (o *Options) ApplyDefaults() {
	if o.MaxOpenConns == 0 {
		o.MaxOpenConns = 4
	}
	if o.ConnMaxLifetime == 0 {
		o.ConnMaxLifetime = 30 * time.Minute
	}
}

// Driver implements store.DocumentStore using PostgreSQL via GORM.
type Driver struct {
	opts Options
	db   *gorm.DB
}

// NewDriver creates a new PostgreSQL driver instance.
func NewDriver(c *store.DriverConfig) (store.DocumentStore, error) {
	var opts Options
	if err := cfg.Decode(c.Options, &opts); err != nil {
		return nil, fmt.Errorf("postgres driver options: %w", err)
	}
	if opts.DSN == "" {
		return nil, fmt.Errorf("dsn is required for postgres driver")
	}
	return &Driver{opts: opts}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "postgres"
}

// Init connects and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	db, err := gorm.Open(postgres.Open(d.opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(d.opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(d.opts.ConnMaxLifetime)
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}

	d.db = db
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
