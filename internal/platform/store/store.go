// Package store provides the document persistence layer and its driver
// abstraction. Every document is a whole-value snapshot stored under a
// logical key: callers load all, mutate in memory, and save all.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNotFound      = errors.New("not found")
	ErrClosed        = errors.New("store closed")
	ErrInvalidKey    = errors.New("invalid document key")
	ErrSchemaVersion = errors.New("unsupported schema version")
)

// Logical document keys.
const (
	KeyActiveInvitations = "active-invitations"
	KeyActivePlans       = "active-plans"
	KeyArchivedPlans     = "archived-plans"
	KeyOptOuts           = "opt-outs"
)

// Driver defines the lifecycle of a persistence backend.
type Driver interface {
	// Init prepares the backend (create tables, load files).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (memory, json, sqlite, postgres, mirror).
	Name() string
}

// Documents reads and writes opaque document bodies by key.
// Implementations must be safe for concurrent use.
type Documents interface {
	// Load returns the stored body for key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the body stored under key.
	Save(ctx context.Context, key string, body []byte) error
}

// DocumentStore is a driver that stores documents.
type DocumentStore interface {
	Driver
	Documents
}

// ValidKey reports whether key is usable as a document key in every driver
// (it doubles as a file name in the json driver).
func ValidKey(key string) bool {
	if key == "" || len(key) > 64 {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
