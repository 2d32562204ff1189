package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers processed operation keys for a bounded time.
// Mutating endpoints use it to absorb client retries: the first request with
// a key wins, repeats inside the TTL are rejected before any write.
type IdempotencyStore interface {
	// MarkProcessed records the key. Returns true when the key was newly
	// marked, false when it was already present and unexpired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed reports whether the key is present and unexpired.
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Close releases any background resources held by the store.
	Close() error
}
