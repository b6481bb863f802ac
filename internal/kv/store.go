// Package kv defines the durable key-value store the sync client persists
// its state into (queued operations, audit drafts, auth metadata), together
// with Badger, SQLite and in-memory implementations.
package kv

import "context"

// Store is a durable string-keyed store of opaque byte values. Values are
// JSON-serialized by callers; no schema is enforced at this layer.
//
// Implementations must survive process restart (except Memory, which exists
// for tests) and must make each Set atomic: a crash mid-write may lose the
// write but must never leave a partially-written value.
type Store interface {
	// Get returns the value stored under key, or common.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix, in unspecified order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases underlying resources.
	Close() error
}
