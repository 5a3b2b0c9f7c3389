package mirrorcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mirrorkv/mirrorcache/absentstore"
	c "github.com/mirrorkv/mirrorcache/codec"
	"github.com/mirrorkv/mirrorcache/internal/keyspace"
	"github.com/mirrorkv/mirrorcache/remote"
)

const reconcileTimeout = 10 * time.Second

type collection[T any] struct {
	name      string
	rem       remote.Remote
	codec     c.Codec[T]
	listCodec c.Codec[[]T]
	log       Logger
	hooks     Hooks

	values *mirror[T]
	lists  *mirror[[]T]
	absent absentstore.Store // nil => absent caching disabled

	disp      *dispatcher
	closeOnce sync.Once
}

func newCollection[T any](ctx context.Context, opts Options[T]) (*collection[T], error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("mirrorcache: remote is required")
	}

	col := &collection[T]{
		name:   opts.Collection,
		rem:    opts.Remote,
		values: newMirror[T](),
		lists:  newMirror[[]T](),
	}

	// defaults
	col.codec = opts.Codec
	if col.codec == nil {
		col.codec = c.JSON[T]{}
	}
	col.listCodec = opts.ListCodec
	if col.listCodec == nil {
		col.listCodec = c.JSON[[]T]{}
	}
	col.log = coalesce[Logger](opts.Logger, NopLogger{})
	col.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	switch {
	case opts.AbsentStore != nil:
		col.absent = opts.AbsentStore
	case opts.AbsentCache:
		col.log.Debug("absent-value cache enabled",
			Fields{"collection": col.name, "ttl": opts.AbsentTTL})
		col.absent = absentstore.NewLocal(opts.AbsentTTL, defaultAbsentSweep)
	}

	queueCap := coalesce[int](opts.QueueCapacity, defaultQueueCapacity)
	workers := coalesce[int](opts.Workers, defaultWorkers)

	sub, err := col.rem.Subscribe(ctx, keyspace.Pattern(col.name), opts.Mode)
	if err != nil {
		if col.absent != nil {
			_ = col.absent.Close()
		}
		return nil, fmt.Errorf("mirrorcache: subscribe %q: %w", col.name, err)
	}
	col.disp = newDispatcher(col.name, queueCap, col.reconcile, col.log, col.hooks)
	col.disp.start(sub, workers)

	return col, nil
}

func (col *collection[T]) ReadOne(ctx context.Context, id string) (T, bool, error) {
	var zero T
	if v, ok := col.values.get(id); ok {
		col.hooks.MirrorHit(col.name, id)
		return v, true, nil
	}
	if col.absent != nil && col.absent.IsAbsent(id) {
		col.hooks.AbsentSuppressed(col.name, id)
		col.log.Debug("absent marker hit, remote lookup suppressed",
			Fields{"collection": col.name, "id": id})
		return zero, false, nil
	}
	col.hooks.MirrorMiss(col.name, id)

	raw, ok, err := col.rem.Get(ctx, keyspace.Key(col.name, id))
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := col.codec.Decode(raw)
	if err != nil {
		// corrupt payload reads as absent; it never aborts the caller
		col.log.Error("unable to decode entry",
			Fields{"collection": col.name, "id": id, "err": err})
		return zero, false, nil
	}
	col.values.put(id, v)
	return v, true, nil
}

func (col *collection[T]) ReadMany(ctx context.Context, ids []string) ([]T, []bool, error) {
	out := make([]T, len(ids))
	ok := make([]bool, len(ids))
	for i, id := range ids {
		v, present, err := col.ReadOne(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		out[i], ok[i] = v, present
	}
	return out, ok, nil
}

func (col *collection[T]) ReadList(ctx context.Context, id string) ([]T, bool, error) {
	if l, ok := col.lists.get(id); ok {
		col.hooks.MirrorHit(col.name, id)
		return l, true, nil
	}
	if col.absent != nil && col.absent.IsAbsent(id) {
		col.hooks.AbsentSuppressed(col.name, id)
		return nil, false, nil
	}
	col.hooks.MirrorMiss(col.name, id)

	raw, ok, err := col.rem.Get(ctx, keyspace.Key(col.name, id))
	if err != nil || !ok {
		return nil, false, err
	}
	l, err := col.listCodec.Decode(raw)
	if err != nil {
		col.log.Error("unable to decode list entry",
			Fields{"collection": col.name, "id": id, "err": err})
		return nil, false, nil
	}
	col.lists.put(id, l)
	return l, true, nil
}

func (col *collection[T]) ReadAll(ctx context.Context) ([]T, error) {
	keys, err := col.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, ok, err := col.ReadOne(ctx, keyspace.ID(col.name, k))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (col *collection[T]) Write(ctx context.Context, id string, value T, ttl time.Duration) (T, error) {
	return col.write(ctx, id, value, ttl)
}

func (col *collection[T]) WriteKeepTTL(ctx context.Context, id string, value T) (T, error) {
	return col.write(ctx, id, value, remote.KeepTTL)
}

// write stores remotely first; the mirror never reflects a write the remote
// store rejected.
func (col *collection[T]) write(ctx context.Context, id string, value T, ttl time.Duration) (T, error) {
	var zero T
	payload, err := col.codec.Encode(value)
	if err != nil {
		return zero, err
	}
	if err := col.rem.Set(ctx, keyspace.Key(col.name, id), payload, ttl); err != nil {
		return zero, err
	}
	col.values.put(id, value)
	// the id demonstrably exists now
	if col.absent != nil {
		col.absent.Clear(id)
	}
	return value, nil
}

func (col *collection[T]) EvictOne(ctx context.Context, id string) error {
	if _, err := col.rem.Del(ctx, keyspace.Key(col.name, id)); err != nil {
		return err
	}
	col.values.remove(id)
	col.lists.remove(id)
	if col.absent != nil {
		col.absent.Clear(id)
	}
	return nil
}

func (col *collection[T]) EvictAll(ctx context.Context) error {
	keys, err := col.scanKeys(ctx)
	if err != nil {
		return &ClearError{Collection: col.name, KeysErr: err}
	}
	if len(keys) > 0 {
		if _, err := col.rem.DelMany(ctx, keys); err != nil {
			return &ClearError{Collection: col.name, DelErr: err}
		}
	}
	col.values.clear()
	col.lists.clear()
	if col.absent != nil {
		col.absent.ClearAll()
	}
	return nil
}

func (col *collection[T]) MarkAbsent(id string) {
	if col.absent != nil {
		col.absent.MarkAbsent(id)
		col.log.Debug("marked id absent", Fields{"collection": col.name, "id": id})
	}
}

func (col *collection[T]) IsAbsent(id string) bool {
	return col.absent != nil && col.absent.IsAbsent(id)
}

func (col *collection[T]) Close(context.Context) error {
	col.closeOnce.Do(func() {
		col.disp.close()
		if col.absent != nil {
			_ = col.absent.Close()
		}
	})
	return nil
}

// scanKeys enumerates the collection's remote keys, flagging slow scans:
// KEYS blocks the store's main thread and does not scale to huge collections.
func (col *collection[T]) scanKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := col.rem.Keys(ctx, keyspace.Pattern(col.name))
	if err != nil {
		return nil, err
	}
	if took := time.Since(start); took >= slowKeyScanThreshold {
		col.hooks.SlowKeyScan(col.name, len(keys), took)
		col.log.Warn("slow key enumeration; KEYS may block the remote store",
			Fields{"collection": col.name, "keys": len(keys), "took": took})
	}
	return keys, nil
}

// reconcile resolves one invalidation event. It runs on a worker goroutine,
// never on the push-delivery path, and trusts only the re-fetched remote
// state - event ordering across keys is meaningless.
//
// Lazy collections refresh an id only if it is already mirrored; a broadcast
// stream would otherwise warm the mirror with every key anyone touches.
func (col *collection[T]) reconcile(ctx context.Context, rawKey string) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	id := keyspace.ID(col.name, rawKey)
	// list payloads are cheap to re-read lazily; just drop them
	col.lists.remove(id)

	raw, ok, err := col.rem.Get(ctx, rawKey)
	if err != nil {
		// prior mirror state is kept; the next event or full sync heals it
		col.hooks.ReconcileError(col.name, id, err)
		col.log.Warn("invalidation re-fetch failed",
			Fields{"collection": col.name, "id": id, "err": err})
		return
	}
	if !ok {
		col.log.Info("invalidated key gone from remote, removed from mirror",
			Fields{"collection": col.name, "id": id})
		col.values.remove(id)
		return
	}

	if _, mirrored := col.values.get(id); !mirrored {
		return
	}
	v, err := col.codec.Decode(raw)
	if err != nil {
		col.log.Error("unable to decode invalidated entry, dropping mirror entry",
			Fields{"collection": col.name, "id": id, "err": err})
		col.values.remove(id)
		return
	}
	col.log.Info("invalidated key re-fetched, mirror updated",
		Fields{"collection": col.name, "id": id})
	col.values.put(id, v)
}
