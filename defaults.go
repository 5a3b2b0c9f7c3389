package mirrorcache

import "time"

const (
	// defaults carried over from the reference deployment
	defaultQueueCapacity = 10000
	defaultWorkers       = 100
	defaultAbsentSweep   = time.Minute

	// Keys scans slower than this are logged as warnings; KEYS blocks the
	// remote store's main thread and does not scale to huge collections.
	slowKeyScanThreshold = 100 * time.Millisecond
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
