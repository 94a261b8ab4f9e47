// Package gormdoc holds the documents table shared by the GORM-backed drivers.
package gormdoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/MahdiBaghbani/pizzabot-go/internal/platform/store"
)

// Document is one row per logical key.
type Document struct {
	Key       string `gorm:"primaryKey;column:doc_key;size:64"`
	Body      []byte `gorm:"not null"`
	UpdatedAt int64  `gorm:"not null"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (Document) TableName() string { return "documents" }

// Migrate creates or updates the documents table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SingleWriter limits a SQLite pool to one connection so concurrent saves
// queue in the pool instead of failing with SQLITE_BUSY.
func SingleWriter(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Load reads the body for key.
func Load(ctx context.Context, db *gorm.DB, key string) ([]byte, error) {
	if db == nil {
		return nil, store.ErrClosed
	}
	var doc Document
	result := db.WithContext(ctx).First(&doc, "doc_key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return doc.Body, nil
}

// Save upserts the body for key.
func Save(ctx context.Context, db *gorm.DB, key string, body []byte) error {
	if !store.ValidKey(key) {
		return fmt.Errorf("%w: %q", store.ErrInvalidKey, key)
	}
	if db == nil {
		return store.ErrClosed
	}
	doc := Document{Key: key, Body: body, UpdatedAt: time.Now().Unix()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
}

// Close closes the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
