// Package kv provides a small key-value store with hierarchical keys and
// per-entry expiry. Keys are string slices (e.g. ["features", "v1", "ab12"])
// joined with ':' for storage.
//
// Badger backs the on-disk store; Memory is used for tests and for runs
// without a cache directory.
package kv

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments.
const Separator = ":"

// Key is a hierarchical path. Segments must not contain Separator.
type Key []string

// String returns the encoded key.
func (k Key) String() string {
	return strings.Join(k, Separator)
}

func (k Key) bytes() []byte {
	return []byte(k.String())
}

// prefixBytes encodes k as a prefix that does not match sibling keys sharing
// a partial last segment ("a:b" must not match "a:bc").
func (k Key) prefixBytes() []byte {
	if len(k) == 0 {
		return nil
	}
	return []byte(k.String() + Separator)
}

// Store is a key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores value under key. A ttl of zero never expires.
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// DeletePrefix removes every key under prefix.
	DeletePrefix(ctx context.Context, prefix Key) error

	// Close releases resources held by the store.
	Close() error
}
