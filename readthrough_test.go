package mirrorcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mirrorkv/mirrorcache/remote/memory"
)

// TestReadThroughLoadsAndWrites: a miss everywhere invokes the loader and
// writes the result through, so the second read never loads again.
func TestReadThroughLoadsAndWrites(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	col := newTestCollection(t, rem, nil)

	loads := 0
	load := func(context.Context) (user, bool, error) {
		loads++
		return user{Name: "loaded"}, true, nil
	}

	v, ok, err := ReadThrough(ctx, col, "1", load)
	if err != nil || !ok || v.Name != "loaded" {
		t.Fatalf("first ReadThrough: ok=%v err=%v v=%v", ok, err, v)
	}
	if _, ok, _ := rem.Get(ctx, "user:1"); !ok {
		t.Fatalf("loaded value should be written to the remote store")
	}

	if _, ok, err := ReadThrough(ctx, col, "1", load); err != nil || !ok {
		t.Fatalf("second ReadThrough: ok=%v err=%v", ok, err)
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
}

// TestReadThroughRecordsAbsent: a loader miss records an absent marker and
// the next call returns without loading.
func TestReadThroughRecordsAbsent(t *testing.T) {
	ctx := context.Background()
	col := newTestCollection(t, memory.New(), func(o *Options[user]) {
		o.AbsentCache = true
	})

	loads := 0
	load := func(context.Context) (user, bool, error) {
		loads++
		return user{}, false, nil
	}

	if _, ok, err := ReadThrough(ctx, col, "ghost", load); ok || err != nil {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if !col.IsAbsent("ghost") {
		t.Fatalf("loader miss should mark the id absent")
	}
	if _, ok, _ := ReadThrough(ctx, col, "ghost", load); ok {
		t.Fatalf("suppressed read should report absent")
	}
	if loads != 1 {
		t.Fatalf("loader ran %d times, want 1", loads)
	}
}

// TestReadThroughLoaderError surfaces the loader's error without caching
// anything.
func TestReadThroughLoaderError(t *testing.T) {
	ctx := context.Background()
	col := newTestCollection(t, memory.New(), func(o *Options[user]) {
		o.AbsentCache = true
	})

	boom := errors.New("upstream down")
	_, _, err := ReadThrough(ctx, col, "1", func(context.Context) (user, bool, error) {
		return user{}, false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if col.IsAbsent("1") {
		t.Fatalf("an errored load must not mark the id absent")
	}
}

// TestWriteThrough: compute feeds Write; a compute miss marks absent and
// writes nothing remotely.
func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	col := newTestCollection(t, rem, func(o *Options[user]) {
		o.AbsentCache = true
	})

	v, ok, err := WriteThrough(ctx, col, "1", time.Minute, func(context.Context) (user, bool, error) {
		return user{Name: "computed"}, true, nil
	})
	if err != nil || !ok || v.Name != "computed" {
		t.Fatalf("ok=%v err=%v v=%v", ok, err, v)
	}
	if _, ok, _ := rem.Get(ctx, "user:1"); !ok {
		t.Fatalf("computed value should reach the remote store")
	}

	_, ok, err = WriteThrough(ctx, col, "2", 0, func(context.Context) (user, bool, error) {
		return user{}, false, nil
	})
	if err != nil || ok {
		t.Fatalf("compute miss: ok=%v err=%v", ok, err)
	}
	if !col.IsAbsent("2") {
		t.Fatalf("compute miss should mark the id absent")
	}
	if _, ok, _ := rem.Get(ctx, "user:2"); ok {
		t.Fatalf("nothing must be written remotely for an absent value")
	}
}

// TestEvictAroundBefore: eviction precedes the operation, so a failing op
// cannot leave the stale entry behind.
func TestEvictAroundBefore(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	col := newTestCollection(t, rem, nil)
	if _, err := col.Write(ctx, "1", user{Name: "a"}, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	boom := errors.New("op failed")
	err := EvictAround(ctx, col, "1", true, func(context.Context) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok, _ := rem.Get(ctx, "user:1"); ok {
		t.Fatalf("evict-before should have removed the entry despite the failed op")
	}
}

// TestEvictAroundAfter: a failing op keeps the entry; a succeeding op evicts.
func TestEvictAroundAfter(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	col := newTestCollection(t, rem, nil)
	if _, err := col.Write(ctx, "1", user{Name: "a"}, 0); err != nil {
		t.Fatalf("Write: %v", err)
	}

	boom := errors.New("op failed")
	if err := EvictAround(ctx, col, "1", false, func(context.Context) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok, _ := rem.Get(ctx, "user:1"); !ok {
		t.Fatalf("evict-after must keep the entry when the op fails")
	}

	if err := EvictAround(ctx, col, "1", false, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("EvictAround: %v", err)
	}
	if _, ok, _ := rem.Get(ctx, "user:1"); ok {
		t.Fatalf("entry should be gone after a successful op")
	}
}

// TestEvictAllAround clears the whole collection around the operation.
func TestEvictAllAround(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	col := newTestCollection(t, rem, nil)
	for _, id := range []string{"1", "2"} {
		if _, err := col.Write(ctx, id, user{Name: id}, 0); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	if err := EvictAllAround(ctx, col, true, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("EvictAllAround: %v", err)
	}
	keys, _ := rem.Keys(ctx, "user:*")
	if len(keys) != 0 {
		t.Fatalf("remote still holds %d keys", len(keys))
	}
}
