// Package memory implements the remote boundary in process memory.
//
// It exists for tests and local development: it honors TTLs, emits
// invalidation notifications for every mutation, and supports both
// subscription modes (direct mode delivers only keys this remote has served
// through Get). Notification delivery is best-effort - a slow subscriber
// drops events - which matches what consumers must tolerate from the real
// transport.
package memory

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/mirrorkv/mirrorcache/remote"
)

type entry struct {
	payload []byte
	exp     time.Time // zero => no TTL
}

type Memory struct {
	mu   sync.Mutex
	m    map[string]entry
	read map[string]bool // keys served via Get, for direct-mode scoping
	subs map[*subscription]bool
}

var _ remote.Remote = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		m:    make(map[string]entry),
		read: make(map[string]bool),
		subs: make(map[*subscription]bool),
	}
}

func (r *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(r.m, key)
		return nil, false, nil
	}
	r.read[key] = true
	return e.payload, true, nil
}

func (r *Memory) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	r.mu.Lock()
	e := entry{payload: payload}
	switch {
	case ttl == remote.KeepTTL:
		e.exp = r.m[key].exp
	case ttl > 0:
		e.exp = time.Now().Add(ttl)
	}
	r.m[key] = e
	r.mu.Unlock()
	r.publish(key)
	return nil
}

func (r *Memory) Del(_ context.Context, key string) (bool, error) {
	r.mu.Lock()
	_, ok := r.m[key]
	delete(r.m, key)
	r.mu.Unlock()
	if ok {
		r.publish(key)
	}
	return ok, nil
}

func (r *Memory) DelMany(ctx context.Context, keys []string) (int64, error) {
	var n int64
	for _, k := range keys {
		ok, _ := r.Del(ctx, k)
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *Memory) Keys(_ context.Context, pattern string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []string
	for k, e := range r.m {
		if !e.exp.IsZero() && now.After(e.exp) {
			delete(r.m, k)
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *Memory) Ping(context.Context) error { return nil }

func (r *Memory) Subscribe(_ context.Context, pattern string, mode remote.Mode) (remote.Subscription, error) {
	s := &subscription{
		r:       r,
		pattern: pattern,
		mode:    mode,
		ch:      make(chan string, 128),
	}
	r.mu.Lock()
	r.subs[s] = true
	r.mu.Unlock()
	return s, nil
}

// publish fans a changed key out to matching subscribers. Channel sends never
// block; a full subscriber loses the event.
func (r *Memory) publish(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.subs {
		if ok, _ := path.Match(s.pattern, key); !ok {
			continue
		}
		if s.mode == remote.ModeDirect && !r.read[key] {
			continue
		}
		select {
		case s.ch <- key:
		default:
		}
	}
}

func (r *Memory) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for s := range r.subs {
		close(s.ch)
		delete(r.subs, s)
	}
	return nil
}

type subscription struct {
	r       *Memory
	pattern string
	mode    remote.Mode
	ch      chan string
	once    sync.Once
}

func (s *subscription) Keys() <-chan string { return s.ch }

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.r.mu.Lock()
		if s.r.subs[s] {
			delete(s.r.subs, s)
			close(s.ch)
		}
		s.r.mu.Unlock()
	})
	return nil
}
