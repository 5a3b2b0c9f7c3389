package mirrorcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	c "github.com/mirrorkv/mirrorcache/codec"
	"github.com/mirrorkv/mirrorcache/internal/keyspace"
	"github.com/mirrorkv/mirrorcache/remote"
)

type fullCollection[T, U any] struct {
	name   string
	rem    remote.Remote
	codec  c.Codec[T]
	filter func(T) bool
	mapper func(T) U
	log    Logger
	hooks  Hooks

	local *mirror[U]

	// syncMu serializes Sync invocations; the swap itself is atomic via the
	// mirror, this only prevents two rebuilds from racing each other.
	syncMu sync.Mutex

	disp      *dispatcher
	closeOnce sync.Once
}

func newFullCollection[T, U any](ctx context.Context, opts FullOptions[T, U]) (*fullCollection[T, U], error) {
	if opts.Remote == nil {
		return nil, fmt.Errorf("mirrorcache: remote is required")
	}
	if opts.ValueMapper == nil {
		return nil, fmt.Errorf("mirrorcache: value mapper is required (use Identity for U == T)")
	}

	f := &fullCollection[T, U]{
		name:   opts.Collection,
		rem:    opts.Remote,
		mapper: opts.ValueMapper,
		local:  newMirror[U](),
	}

	f.codec = opts.Codec
	if f.codec == nil {
		f.codec = c.JSON[T]{}
	}
	f.filter = opts.ValueFilter
	if f.filter == nil {
		f.filter = func(T) bool { return true }
	}
	f.log = coalesce[Logger](opts.Logger, NopLogger{})
	f.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})

	queueCap := coalesce[int](opts.QueueCapacity, defaultQueueCapacity)
	workers := coalesce[int](opts.Workers, defaultWorkers)

	sub, err := f.rem.Subscribe(ctx, keyspace.Pattern(f.name), remote.ModeBroadcast)
	if err != nil {
		return nil, fmt.Errorf("mirrorcache: subscribe %q: %w", f.name, err)
	}
	f.disp = newDispatcher(f.name, queueCap, f.reconcile, f.log, f.hooks)
	f.disp.start(sub, workers)

	// populate before handing the collection out
	if err := f.Sync(ctx); err != nil {
		f.disp.close()
		return nil, fmt.Errorf("mirrorcache: initial sync %q: %w", f.name, err)
	}
	return f, nil
}

func (f *fullCollection[T, U]) Get(id string) (U, bool) {
	v, ok := f.local.get(id)
	if ok {
		f.hooks.MirrorHit(f.name, id)
	} else {
		f.hooks.MirrorMiss(f.name, id)
	}
	return v, ok
}

func (f *fullCollection[T, U]) GetMany(ids []string) ([]U, []bool) {
	return f.local.getMany(ids)
}

func (f *fullCollection[T, U]) All() []U {
	return f.local.getAll()
}

func (f *fullCollection[T, U]) ReadRemote(ctx context.Context, id string) (T, bool, error) {
	var zero T
	raw, ok, err := f.rem.Get(ctx, keyspace.Key(f.name, id))
	if err != nil || !ok {
		return zero, false, err
	}
	v, err := f.codec.Decode(raw)
	if err != nil {
		f.log.Error("unable to decode remote entry",
			Fields{"collection": f.name, "id": id, "err": err})
		return zero, false, nil
	}
	return v, true, nil
}

func (f *fullCollection[T, U]) ReadRemoteAll(ctx context.Context) ([]T, error) {
	keys, err := f.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, ok, err := f.ReadRemote(ctx, keyspace.ID(f.name, k))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Sync rebuilds the mirror from scratch. The replacement set is built off to
// the side and swapped in whole; a remote I/O failure aborts the rebuild and
// leaves the pre-sync snapshot serving reads. Undecodable entries are logged
// and skipped - one corrupt value must not sink the whole sync. Absent values
// observed mid-scan are simply not inserted. The absent-value cache (of the
// lazy variant) is never touched by a sync.
func (f *fullCollection[T, U]) Sync(ctx context.Context) error {
	f.syncMu.Lock()
	defer f.syncMu.Unlock()

	start := time.Now()
	keys, err := f.scanKeys(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]U, len(keys))
	for _, k := range keys {
		raw, ok, err := f.rem.Get(ctx, k)
		if err != nil {
			return err
		}
		if !ok {
			continue // deleted between scan and fetch
		}
		id := keyspace.ID(f.name, k)
		v, err := f.codec.Decode(raw)
		if err != nil {
			f.log.Error("skipping undecodable entry during sync",
				Fields{"collection": f.name, "id": id, "err": err})
			continue
		}
		if !f.filter(v) {
			continue
		}
		next[id] = f.mapper(v)
	}

	f.local.replaceAll(next)
	took := time.Since(start)
	f.hooks.SyncCompleted(f.name, len(next), took)
	f.log.Info("full sync replaced mirror contents",
		Fields{"collection": f.name, "entries": len(next), "took": took})
	return nil
}

func (f *fullCollection[T, U]) Write(ctx context.Context, id string, value T, ttl time.Duration) (T, error) {
	return f.write(ctx, id, value, ttl)
}

func (f *fullCollection[T, U]) WriteKeepTTL(ctx context.Context, id string, value T) (T, error) {
	return f.write(ctx, id, value, remote.KeepTTL)
}

func (f *fullCollection[T, U]) write(ctx context.Context, id string, value T, ttl time.Duration) (T, error) {
	var zero T
	payload, err := f.codec.Encode(value)
	if err != nil {
		return zero, err
	}
	if err := f.rem.Set(ctx, keyspace.Key(f.name, id), payload, ttl); err != nil {
		return zero, err
	}
	if f.filter(value) {
		f.local.put(id, f.mapper(value))
	} else {
		f.local.remove(id)
	}
	return value, nil
}

func (f *fullCollection[T, U]) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := f.rem.Del(ctx, keyspace.Key(f.name, id))
	if err != nil {
		return false, err
	}
	f.local.remove(id)
	return existed, nil
}

func (f *fullCollection[T, U]) Clear(ctx context.Context) error {
	keys, err := f.scanKeys(ctx)
	if err != nil {
		return &ClearError{Collection: f.name, KeysErr: err}
	}
	if len(keys) > 0 {
		if _, err := f.rem.DelMany(ctx, keys); err != nil {
			return &ClearError{Collection: f.name, DelErr: err}
		}
	}
	f.local.clear()
	return nil
}

func (f *fullCollection[T, U]) Close(context.Context) error {
	f.closeOnce.Do(func() {
		f.disp.close()
	})
	return nil
}

func (f *fullCollection[T, U]) scanKeys(ctx context.Context) ([]string, error) {
	start := time.Now()
	keys, err := f.rem.Keys(ctx, keyspace.Pattern(f.name))
	if err != nil {
		return nil, err
	}
	if took := time.Since(start); took >= slowKeyScanThreshold {
		f.hooks.SlowKeyScan(f.name, len(keys), took)
		f.log.Warn("slow key enumeration; KEYS may block the remote store",
			Fields{"collection": f.name, "keys": len(keys), "took": took})
	}
	return keys, nil
}

// reconcile resolves one invalidation event for the whole-dataset mirror:
// re-fetch, then remove (gone or filtered out) or upsert the mapped value.
// The re-fetch is authoritative; a stale event self-corrects on the next
// event for the id or on the next Sync.
func (f *fullCollection[T, U]) reconcile(ctx context.Context, rawKey string) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	id := keyspace.ID(f.name, rawKey)
	raw, ok, err := f.rem.Get(ctx, rawKey)
	if err != nil {
		f.hooks.ReconcileError(f.name, id, err)
		f.log.Warn("invalidation re-fetch failed",
			Fields{"collection": f.name, "id": id, "err": err})
		return
	}
	if !ok {
		f.log.Info("invalidated key gone from remote, removed from mirror",
			Fields{"collection": f.name, "id": id})
		f.local.remove(id)
		return
	}
	v, err := f.codec.Decode(raw)
	if err != nil {
		f.hooks.ReconcileError(f.name, id, err)
		f.log.Error("unable to decode invalidated entry, dropping mirror entry",
			Fields{"collection": f.name, "id": id, "err": err})
		f.local.remove(id)
		return
	}
	if !f.filter(v) {
		f.local.remove(id)
		return
	}
	f.log.Info("invalidated key re-fetched, mirror updated",
		Fields{"collection": f.name, "id": id})
	f.local.put(id, f.mapper(v))
}
