package mirrorcache

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A read was served from the local mirror / missed it.
	MirrorHit(collection, id string)
	MirrorMiss(collection, id string)

	// A remote lookup was suppressed by a live absent marker.
	AbsentSuppressed(collection, id string)

	// The invalidation queue was full; the oldest queued event was dropped.
	EventDropped(collection string)

	// Reconciling one invalidation event failed (transient remote error).
	// The mirror keeps its prior state for the id.
	ReconcileError(collection, id string, err error)

	// A full sync replaced the mirror contents.
	SyncCompleted(collection string, entries int, took time.Duration)

	// Enumerating the collection's keys exceeded the slow-scan threshold.
	SlowKeyScan(collection string, keys int, took time.Duration)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) MirrorHit(string, string)                 {}
func (NopHooks) MirrorMiss(string, string)                {}
func (NopHooks) AbsentSuppressed(string, string)          {}
func (NopHooks) EventDropped(string)                      {}
func (NopHooks) ReconcileError(string, string, error)     {}
func (NopHooks) SyncCompleted(string, int, time.Duration) {}
func (NopHooks) SlowKeyScan(string, int, time.Duration)   {}
