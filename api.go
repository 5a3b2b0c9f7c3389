package mirrorcache

import (
	"context"
	"time"

	"github.com/mirrorkv/mirrorcache/absentstore"
	c "github.com/mirrorkv/mirrorcache/codec"
	"github.com/mirrorkv/mirrorcache/remote"
)

// Collection is the lazily-populated mirror of one remote key prefix.
// Reads are served from the local mirror when possible and fall through to
// the remote store on miss; a server-pushed invalidation stream keeps
// mirrored entries consistent. Consistency is eventual, never linearizable:
// a mirrored value is always one the remote store held at some past instant,
// or a value this process wrote that a racing remote writer will correct
// within an invalidation round-trip.
type Collection[T any] interface {
	// ReadOne returns the value for id: mirror first, then the absent-value
	// cache (suppressing the remote lookup), then the remote store.
	ReadOne(ctx context.Context, id string) (T, bool, error)

	// ReadMany resolves ids positionally; ok[i] reports presence.
	ReadMany(ctx context.Context, ids []string) ([]T, []bool, error)

	// ReadList reads a key whose payload is a serialized sequence of T.
	// List payloads are mirrored separately and evicted (not re-fetched) on
	// invalidation; they are expected to be written by foreign processes.
	ReadList(ctx context.Context, id string) ([]T, bool, error)

	// ReadAll enumerates the collection's remote keys and resolves each id
	// through ReadOne. Absent and undecodable entries are skipped.
	ReadAll(ctx context.Context) ([]T, error)

	// Write stores value remotely, then mirrors it. ttl == 0 means no
	// expiration. The absent marker for id, if any, is cleared.
	Write(ctx context.Context, id string, value T, ttl time.Duration) (T, error)

	// WriteKeepTTL is Write preserving the key's existing expiration.
	WriteKeepTTL(ctx context.Context, id string, value T) (T, error)

	// EvictOne deletes id remotely and locally. Idempotent.
	EvictOne(ctx context.Context, id string) error

	// EvictAll deletes every remote key of the collection and clears the
	// mirror and the absent-value cache.
	EvictAll(ctx context.Context) error

	// MarkAbsent records id as confirmed-absent (no-op when the collection
	// has no absent-value cache). IsAbsent reports a live marker.
	MarkAbsent(id string)
	IsAbsent(id string) bool

	// Close tears down the invalidation pipeline and the absent-value
	// cache. The shared remote connection is left open.
	Close(ctx context.Context) error
}

// Options configures one lazily-populated collection.
// Only Remote is required; others have sensible defaults.
type Options[T any] struct {
	// Collection is the key prefix partitioning the flat remote key space.
	// Empty mirrors the whole keyspace.
	Collection string

	// Required. The connection is shared across collections; Close never
	// touches it.
	Remote remote.Remote

	Codec     c.Codec[T]   // nil => codec.JSON[T]
	ListCodec c.Codec[[]T] // payload codec for ReadList; nil => codec.JSON[[]T]

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks

	// AbsentCache enables the confirmed-absent marker cache. AbsentTTL == 0
	// keeps markers for the process lifetime. With AbsentCache false, every
	// miss re-queries the remote store.
	AbsentCache bool
	AbsentTTL   time.Duration

	// AbsentStore overrides the marker backend (implies AbsentCache).
	// nil => absentstore.Local honoring AbsentTTL.
	AbsentStore absentstore.Store

	// Mode scopes the invalidation subscription. Default ModeDirect.
	Mode remote.Mode

	QueueCapacity int // invalidation queue; 0 => 10000
	Workers       int // reconciliation workers; 0 => 100
}

// New builds a Collection and opens its invalidation subscription.
func New[T any](ctx context.Context, opts Options[T]) (Collection[T], error) {
	return newCollection[T](ctx, opts)
}

// FullCollection is the eagerly-populated variant: the mirror holds the
// whole dataset (remote type T filtered and mapped to local type U) and is
// rebuilt by Sync. Local reads never perform I/O.
type FullCollection[T, U any] interface {
	// Get/GetMany/All read the local mirror only.
	Get(id string) (U, bool)
	GetMany(ids []string) ([]U, []bool)
	All() []U

	// ReadRemote and ReadRemoteAll bypass the mirror and query the
	// authoritative store directly.
	ReadRemote(ctx context.Context, id string) (T, bool, error)
	ReadRemoteAll(ctx context.Context) ([]T, error)

	// Sync rebuilds the mirror from the remote store: enumerate, fetch,
	// decode (corrupt entries are logged and skipped), filter, map, then
	// atomically swap the full entry set. Concurrent readers observe either
	// the pre-sync or the post-sync snapshot. Intended as the periodic
	// correctness backstop for lost invalidations.
	Sync(ctx context.Context) error

	Write(ctx context.Context, id string, value T, ttl time.Duration) (T, error)
	WriteKeepTTL(ctx context.Context, id string, value T) (T, error)
	Delete(ctx context.Context, id string) (bool, error)

	// Clear deletes every remote key of the collection and empties the mirror.
	Clear(ctx context.Context) error

	Close(ctx context.Context) error
}

// FullOptions configures a full-mirror collection.
// Remote and ValueMapper are required (use Identity for U == T).
type FullOptions[T, U any] struct {
	Collection string
	Remote     remote.Remote
	Codec      c.Codec[T] // nil => codec.JSON[T]

	// ValueFilter drops remote entries from the mirror; entries failing it
	// are filtered out on sync and removed on invalidation.
	// nil => accept everything.
	ValueFilter func(T) bool

	// ValueMapper transforms the remote type into the locally-mirrored type.
	ValueMapper func(T) U

	Logger Logger
	Hooks  Hooks

	QueueCapacity int // 0 => 10000
	Workers       int // 0 => 100
}

// Identity is the ValueMapper for collections mirroring the remote type as-is.
func Identity[T any]() func(T) T { return func(v T) T { return v } }

// NewFull builds a FullCollection, opens a broadcast invalidation
// subscription, and performs the initial full sync before returning.
func NewFull[T, U any](ctx context.Context, opts FullOptions[T, U]) (FullCollection[T, U], error) {
	return newFullCollection[T, U](ctx, opts)
}
