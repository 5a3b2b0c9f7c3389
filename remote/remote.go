// Package remote defines the boundary to the authoritative key-value store.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the []byte previously passed to Set for a key (no prepended/appended
// metadata, no re-encoding). The store is shared with foreign writers, so
// payload interpretation belongs entirely to the codec layer.
//
// Subscription streams are best-effort: duplicates and occasional missed
// notifications must be tolerated by consumers. The full-sync reconciler
// exists to heal whatever the stream drops.
package remote

import (
	"context"
	"time"
)

// Mode selects how invalidation notifications are scoped.
type Mode int

const (
	// ModeDirect delivers notifications only for keys this connection has
	// actually read. Transports without per-connection tracking (the redis
	// keyspace-notification transport) degrade ModeDirect to ModeBroadcast.
	ModeDirect Mode = iota

	// ModeBroadcast delivers notifications for every key matching the
	// subscribed pattern, regardless of which client touched it.
	ModeBroadcast
)

// KeepTTL, passed as the ttl argument of Set, preserves an existing
// expiration on the target key instead of clearing or replacing it.
const KeepTTL = time.Duration(-1)

// Subscription is a live stream of raw keys whose values changed.
type Subscription interface {
	// Keys returns the notification channel. It is closed when the
	// subscription terminates.
	Keys() <-chan string

	// Close tears the subscription down and closes the Keys channel.
	Close() error
}

// Remote is the minimal contract the coherence engine needs from the
// authoritative store. Implementations must be safe for concurrent use; the
// connection is shared across collections and reconciliation workers.
type Remote interface {
	// Get returns (payload, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores payload under key. ttl == 0 means no expiration,
	// ttl == KeepTTL preserves the key's existing expiration.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Del removes a key, reporting whether it existed.
	Del(ctx context.Context, key string) (bool, error)

	// DelMany removes many keys, returning the number actually deleted.
	DelMany(ctx context.Context, keys []string) (int64, error)

	// Keys enumerates every key matching pattern. Potentially store-wide;
	// callers are expected to flag slow scans.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Subscribe opens an invalidation stream for keys matching pattern.
	Subscribe(ctx context.Context, pattern string, mode Mode) (Subscription, error)

	// Ping touches the connection; used by keep-alive loops.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close(ctx context.Context) error
}
