package storage

import (
	"context"
)

// Store is the client's persistent key-value store as seen by the harness.
// Write and Clear are the seeding operations; Read observes what the client
// persisted and is never used to mutate state.
type Store interface {
	// Write stores value under key, replacing any previous value.
	Write(ctx context.Context, key, value string) error

	// Clear removes every key from the store.
	Clear(ctx context.Context) error

	// Read returns the value stored under key.
	// found is false when the key does not exist.
	Read(ctx context.Context, key string) (value string, found bool, err error)
}
