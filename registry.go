package mirrorcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// closer is the lifecycle every registered collection shares.
type closer interface {
	Close(ctx context.Context) error
}

// Registry owns one collection per key prefix with create-on-first-use
// semantics. It replaces a process-wide static map: the composition root
// constructs a Registry, hands it to call sites, and tears everything down
// with CloseAll on shutdown.
type Registry struct {
	mu     sync.Mutex
	closed bool
	cols   map[string]closer
}

func NewRegistry() *Registry {
	return &Registry{cols: make(map[string]closer)}
}

var ErrRegistryClosed = errors.New("mirrorcache: registry closed")

// Lookup returns the collection registered under prefix, building it with
// build on first use. The value type is fixed by the first registration;
// looking the prefix up under a different T fails.
func Lookup[T any](ctx context.Context, r *Registry, prefix string, build func(ctx context.Context) (Collection[T], error)) (Collection[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}
	if existing, ok := r.cols[prefix]; ok {
		col, ok := existing.(Collection[T])
		if !ok {
			return nil, fmt.Errorf("mirrorcache: prefix %q registered with a different value type", prefix)
		}
		return col, nil
	}
	col, err := build(ctx)
	if err != nil {
		return nil, err
	}
	r.cols[prefix] = col
	return col, nil
}

// CloseAll tears down every registered collection. The registry rejects
// further lookups afterwards.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	var errs []error
	for prefix, col := range r.cols {
		if err := col.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", prefix, err))
		}
		delete(r.cols, prefix)
	}
	return errors.Join(errs...)
}
