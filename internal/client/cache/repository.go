// Package cache is the device-local store for derived gift state. Everything
// in it can be discarded and regenerated from the record store, so writes
// are always full replacements and reads tolerate an empty database.
package cache

import "context"

// Repository is a small key-value store over the local SQLite database.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
