// Package cache implements the short-lived denylist/throttle state behind
// the auth flow: single-use token tracking and login attempt counters.
// Any key-value store with per-key expiry and atomic set-if-absent /
// increment primitives can back it.
package cache

import (
	"context"
	"time"
)

// Guard is the contract the auth flow needs from the shared cache.
//
// Both operations that guard single-use tokens and attempt counters must be
// atomic in the store itself, so that two concurrent requests cannot both
// pass validation before either records consumption.
type Guard interface {
	// MarkConsumed records tokenID as consumed for ttl. It returns true if
	// this call was the one that consumed it, false if it was already
	// consumed. Check-then-mark is a single atomic operation.
	MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)

	// IsConsumed reports whether tokenID has been marked consumed and has
	// not yet expired from the store.
	IsConsumed(ctx context.Context, tokenID string) (bool, error)

	// IncrAttempt atomically increments the windowed counter for key and
	// returns the new count. The window starts at the first increment and is
	// not extended by later ones.
	IncrAttempt(ctx context.Context, key string, window time.Duration) (int64, error)

	// Attempts returns the current counter value for key, zero when the key
	// is absent or its window has expired.
	Attempts(ctx context.Context, key string) (int64, error)
}
