// Package absentstore records ids confirmed absent from the remote store.
//
// A hot id with no remote value otherwise re-queries the remote store on
// every read ("cache stomping"). Marking it absent for a bounded TTL trades a
// staleness window - the id may be created remotely and stay invisible until
// the marker expires or a local write clears it - for protection of the
// remote store. Collections opt in per-collection.
package absentstore

import "time"

// Store holds absent markers for one collection. Implementations must be
// safe for concurrent use.
//
// TTL semantics are fixed at construction: a zero TTL means markers never
// expire before process exit. Stores are never shared across collections.
type Store interface {
	// MarkAbsent records id as confirmed-absent as of now.
	MarkAbsent(id string)

	// IsAbsent reports whether a non-expired marker exists for id.
	IsAbsent(id string) bool

	// Clear drops the marker for id, if any.
	Clear(id string)

	// ClearAll drops every marker.
	ClearAll()

	// Close releases resources (no-op ok).
	Close() error
}

// marker is the stored sentinel: only the recording time matters.
type marker struct {
	recordedAt time.Time
}
