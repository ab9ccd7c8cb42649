// Package store persists agent configurations and conversations as JSON records.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Load when no record has the key.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid key")
)

// Storage is a key/value store of JSON records.
// Keys are flat names such as "agent_<id>"; List selects records by key prefix.
type Storage interface {
	// Save stores value, encoded as JSON, under key, replacing any existing record.
	Save(ctx context.Context, key string, value any) error
	// Load decodes the record stored under key into out.
	Load(ctx context.Context, key string, out any) error
	// Delete removes the record. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a record is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every record whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]json.RawMessage, error)
	// Close releases resources held by the store.
	Close() error
}

// validateKey rejects keys that would escape a directory or collide with file names.
func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

func encode(key string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", key, err)
	}
	return data, nil
}

func decode(key string, data []byte, out any) error {
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
