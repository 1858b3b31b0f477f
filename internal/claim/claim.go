package claim

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks store failures (connection refused, timeouts). Callers
// must treat it as a failed attempt, never as "no claim needed": the
// at-most-once guarantee cannot hold without the store.
var ErrUnavailable = errors.New("claim store unavailable")

// Store awards each key to at most one caller system-wide for the lifetime of
// the claim's TTL. TryClaim must be a single atomic conditional write at the
// backing service; a read-then-write sequence is a defect, not a
// simplification.
type Store interface {
	// TryClaim sets key only if absent, with the given expiry, and reports
	// whether this call created it.
	TryClaim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release deletes the key. Best effort, used only for explicit rollback.
	Release(ctx context.Context, key string) error
}
