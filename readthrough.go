package mirrorcache

import (
	"context"
	"time"
)

// Loader produces an authoritative value for an id, typically by querying
// the system of record behind the remote store. ok == false means the id
// does not exist there.
type Loader[T any] func(ctx context.Context) (T, bool, error)

// ReadThrough is the declarative read path: mirror, then absent-value
// cache, then the remote store, and only then load. A load that finds
// nothing records an absent marker (when the collection has one); a load
// that succeeds is written through the collection, making it visible to the
// remote store and every other mirror.
func ReadThrough[T any](ctx context.Context, col Collection[T], id string, load Loader[T]) (T, bool, error) {
	var zero T
	if v, ok, err := col.ReadOne(ctx, id); err != nil || ok {
		return v, ok, err
	}
	// ReadOne reports a suppressed lookup and a genuine remote miss the same
	// way; a live marker distinguishes them.
	if col.IsAbsent(id) {
		return zero, false, nil
	}
	v, ok, err := load(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		col.MarkAbsent(id)
		return zero, false, nil
	}
	if _, err := col.Write(ctx, id, v, 0); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// WriteThrough runs compute and writes its result through the collection
// with ttl (0 = no expiration). A compute that produces nothing records an
// absent marker instead; nothing is written remotely for absent values.
func WriteThrough[T any](ctx context.Context, col Collection[T], id string, ttl time.Duration, compute Loader[T]) (T, bool, error) {
	return writeThrough(ctx, col, id, compute, func(v T) (T, error) {
		return col.Write(ctx, id, v, ttl)
	})
}

// WriteThroughKeepTTL is WriteThrough preserving the key's existing
// expiration.
func WriteThroughKeepTTL[T any](ctx context.Context, col Collection[T], id string, compute Loader[T]) (T, bool, error) {
	return writeThrough(ctx, col, id, compute, func(v T) (T, error) {
		return col.WriteKeepTTL(ctx, id, v)
	})
}

func writeThrough[T any](ctx context.Context, col Collection[T], id string, compute Loader[T], write func(T) (T, error)) (T, bool, error) {
	var zero T
	v, ok, err := compute(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		col.MarkAbsent(id)
		return zero, false, nil
	}
	if _, err := write(v); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// EvictAround runs op with an eviction of id before or after it. Evicting
// before the operation keeps a failed op from resurrecting the entry;
// evicting after keeps readers served until the op commits.
func EvictAround[T any](ctx context.Context, col Collection[T], id string, beforeInvocation bool, op func(ctx context.Context) error) error {
	if beforeInvocation {
		if err := col.EvictOne(ctx, id); err != nil {
			return err
		}
		return op(ctx)
	}
	if err := op(ctx); err != nil {
		return err
	}
	return col.EvictOne(ctx, id)
}

// EvictAllAround is EvictAround for the whole collection.
func EvictAllAround[T any](ctx context.Context, col Collection[T], beforeInvocation bool, op func(ctx context.Context) error) error {
	if beforeInvocation {
		if err := col.EvictAll(ctx); err != nil {
			return err
		}
		return op(ctx)
	}
	if err := op(ctx); err != nil {
		return err
	}
	return col.EvictAll(ctx)
}
