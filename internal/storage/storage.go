// Package storage defines the durable key-value contract the stores persist
// through, with in-memory and JSON-file implementations.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetItem when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a string key-value medium. A SetItem is atomic: readers see the
// old value or the new one, never a mix.
type Storage interface {
	// GetItem returns the value for key, or ErrNotFound.
	GetItem(ctx context.Context, key string) (string, error)

	// SetItem replaces the value for key.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// Close releases the medium.
	Close() error
}
