package engine

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies timestamps for every mutation. Injected so tests can
// replace wall-clock time with deterministic values.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real wall clock.
//
// Thread-safety: stateless, safe for concurrent use.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IDGenerator mints identifiers for new rows (events, identities,
// outbox entries, users). Injected so tests can supply fixed ids.
type IDGenerator interface {
	NewID(prefix string) string
}

// UUIDv7Generator mints prefixed, time-sortable UUIDv7 identifiers,
// e.g. "evt_0190cafe-....". UUIDv7 embeds a timestamp in the most
// significant bits, so ids sort by creation time.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// NewID returns prefix + "_" + a new UUIDv7.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID(prefix string) string {
	return prefix + "_" + uuid.Must(uuid.NewV7()).String()
}
