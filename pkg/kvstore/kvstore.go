// Package kvstore provides the key/value byte stores the ledgers persist into.
package kvstore

import "context"

// Store is a key/value byte store. Implementations make no atomicity promise across keys.
type Store interface {
	// Get returns the value stored under key. found is false when the key does not exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}
