package mirrorcache

import "sync"

// mirror is the in-memory mirror of one collection: id -> decoded value.
// Pure data structure - no remote I/O ever happens here. Mutations are
// mutually exclusive; readers proceed concurrently and never observe a torn
// write. replaceAll swaps the whole map so concurrent readers see either the
// pre-sync or the post-sync snapshot, never a mix.
type mirror[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

func newMirror[V any]() *mirror[V] {
	return &mirror[V]{m: make(map[string]V)}
}

func (s *mirror[V]) get(id string) (V, bool) {
	s.mu.RLock()
	v, ok := s.m[id]
	s.mu.RUnlock()
	return v, ok
}

// getMany returns values positionally for ids; ok[i] reports presence.
func (s *mirror[V]) getMany(ids []string) ([]V, []bool) {
	out := make([]V, len(ids))
	ok := make([]bool, len(ids))
	s.mu.RLock()
	for i, id := range ids {
		out[i], ok[i] = s.m[id]
	}
	s.mu.RUnlock()
	return out, ok
}

// getAll returns every present value, in no particular order.
func (s *mirror[V]) getAll() []V {
	s.mu.RLock()
	out := make([]V, 0, len(s.m))
	for _, v := range s.m {
		out = append(out, v)
	}
	s.mu.RUnlock()
	return out
}

func (s *mirror[V]) put(id string, v V) {
	s.mu.Lock()
	s.m[id] = v
	s.mu.Unlock()
}

func (s *mirror[V]) remove(id string) {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
}

func (s *mirror[V]) clear() {
	s.mu.Lock()
	s.m = make(map[string]V)
	s.mu.Unlock()
}

// replaceAll atomically substitutes the full entry set.
func (s *mirror[V]) replaceAll(next map[string]V) {
	s.mu.Lock()
	s.m = next
	s.mu.Unlock()
}

func (s *mirror[V]) size() int {
	s.mu.RLock()
	n := len(s.m)
	s.mu.RUnlock()
	return n
}
