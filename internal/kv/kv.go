// Package kv provides the local key-value store backing all persisted
// state. Values are opaque text, typically JSON; the typed view over the
// well-known keys lives in the ledger package.
package kv

import "context"

// Store is the persistence medium. Set must be durable on return so a
// restart always observes the latest write.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, overwriting any prior value.
	Set(ctx context.Context, key, value string) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}
