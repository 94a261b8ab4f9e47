package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the version stamped on every document written.
const SchemaVersion = 1

type arrayDocument[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Items         []T `json:"items"`
}

type objectDocument[T any] struct {
	SchemaVersion int `json:"schema_version"`
	Data          T   `json:"data"`
}

func checkVersion(key string, v int) error {
	// 0 means the field is absent: a document written before versioning.
	if v < 0 || v > SchemaVersion {
		return fmt.Errorf("%w: %q has version %d, this build reads up to %d", ErrSchemaVersion, key, v, SchemaVersion)
	}
	return nil
}

// ReadArray loads the array stored under key. A missing document reads as an
// empty array. Bare JSON arrays without an envelope are accepted as legacy
// documents.
func ReadArray[T any](ctx context.Context, d Documents, key string) ([]T, error) {
	body, err := d.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", key, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}

	if body[0] == '[' {
		var items []T
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode %q: %w", key, err)
		}
		return items, nil
	}

	var doc arrayDocument[T]
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode %q: %w", key, err)
	}
	if err := checkVersion(key, doc.SchemaVersion); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// SaveArray replaces the array stored under key.
func SaveArray[T any](ctx context.Context, d Documents, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	body, err := json.MarshalIndent(arrayDocument[T]{SchemaVersion: SchemaVersion, Items: items}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := d.Save(ctx, key, body); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}

// ReadObject loads the object stored under key into a new T.
// found is false when no document exists yet.
func ReadObject[T any](ctx context.Context, d Documents, key string) (value T, found bool, err error) {
	body, err := d.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("load %q: %w", key, err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return value, false, nil
	}

	var doc objectDocument[T]
	if err := json.Unmarshal(body, &doc); err != nil {
		return value, false, fmt.Errorf("decode %q: %w", key, err)
	}
	if err := checkVersion(key, doc.SchemaVersion); err != nil {
		return value, false, err
	}
	return doc.Data, true, nil
}

// SaveObject replaces the object stored under key.
func SaveObject[T any](ctx context.Context, d Documents, key string, value T) error {
	body, err := json.MarshalIndent(objectDocument[T]{SchemaVersion: SchemaVersion, Data: value}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := d.Save(ctx, key, body); err != nil {
		return fmt.Errorf("save %q: %w", key, err)
	}
	return nil
}
