package kv

import "context"

// Repository is durable key-value storage scoped to one device or profile.
// Values are opaque strings; callers own their encoding.
type Repository interface {
	// Get returns the value and true, or "" and false when the key is absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// MultiSet writes every pair, atomically where the backend allows it.
	MultiSet(ctx context.Context, entries map[string]string) error
	// MultiGet returns one entry per key in order; nil marks an absent key.
	MultiGet(ctx context.Context, keys []string) ([]*string, error)
	// MultiRemove deletes the keys. Absent keys are not an error.
	MultiRemove(ctx context.Context, keys []string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}
