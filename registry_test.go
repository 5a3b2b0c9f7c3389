package mirrorcache

import (
	"context"
	"errors"
	"testing"

	"github.com/mirrorkv/mirrorcache/remote"
	"github.com/mirrorkv/mirrorcache/remote/memory"
)

func buildUsers(rem remote.Remote) func(ctx context.Context) (Collection[user], error) {
	return func(ctx context.Context) (Collection[user], error) {
		return New[user](ctx, Options[user]{Collection: "user", Remote: rem, Mode: remote.ModeBroadcast})
	}
}

// TestRegistryCreateOnFirstUse: the builder runs once; later lookups reuse
// the same collection.
func TestRegistryCreateOnFirstUse(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	r := NewRegistry()
	defer r.CloseAll(ctx)

	builds := 0
	build := func(ctx context.Context) (Collection[user], error) {
		builds++
		return buildUsers(rem)(ctx)
	}

	a, err := Lookup(ctx, r, "user", build)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	b, err := Lookup(ctx, r, "user", build)
	if err != nil {
		t.Fatalf("Lookup (second): %v", err)
	}
	if a != b {
		t.Fatalf("lookups under one prefix should return one collection")
	}
	if builds != 1 {
		t.Fatalf("builder ran %d times, want 1", builds)
	}
}

// TestRegistryTypeMismatch: a prefix is bound to its first value type.
func TestRegistryTypeMismatch(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	r := NewRegistry()
	defer r.CloseAll(ctx)

	if _, err := Lookup(ctx, r, "user", buildUsers(rem)); err != nil {
		t.Fatalf("Lookup: %v", err)
	}

	_, err := Lookup(ctx, r, "user", func(ctx context.Context) (Collection[account], error) {
		return New[account](ctx, Options[account]{Collection: "user", Remote: rem, Mode: remote.ModeBroadcast})
	})
	if err == nil {
		t.Fatalf("expected a type mismatch error")
	}
}

// TestRegistryBuildError: a failed build registers nothing, so the next
// lookup retries.
func TestRegistryBuildError(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	r := NewRegistry()
	defer r.CloseAll(ctx)

	boom := errors.New("build failed")
	_, err := Lookup(ctx, r, "user", func(context.Context) (Collection[user], error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	if _, err := Lookup(ctx, r, "user", buildUsers(rem)); err != nil {
		t.Fatalf("retry after failed build: %v", err)
	}
}

// TestRegistryCloseAll rejects lookups after shutdown.
func TestRegistryCloseAll(t *testing.T) {
	ctx := context.Background()
	rem := memory.New()
	r := NewRegistry()

	if _, err := Lookup(ctx, r, "user", buildUsers(rem)); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := r.CloseAll(ctx); err != nil {
		t.Fatalf("CloseAll: %v", err)
	}
	if _, err := Lookup(ctx, r, "user", buildUsers(rem)); !errors.Is(err, ErrRegistryClosed) {
		t.Fatalf("err = %v, want ErrRegistryClosed", err)
	}
	// idempotent
	if err := r.CloseAll(ctx); err != nil {
		t.Fatalf("CloseAll (second): %v", err)
	}
}
