// Package asynchook decouples Hooks implementations from the cache's hot
// paths: every callback is queued to a small worker pool, and events are
// dropped rather than ever blocking a read or a reconciliation worker.
//
// usage:
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
package asynchook

import (
	"sync"
	"time"

	"github.com/mirrorkv/mirrorcache"
)

type Hooks struct {
	inner mirrorcache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ mirrorcache.Hooks = (*Hooks)(nil)

func New(inner mirrorcache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) MirrorHit(c, id string)  { h.try(func() { h.inner.MirrorHit(c, id) }) }
func (h *Hooks) MirrorMiss(c, id string) { h.try(func() { h.inner.MirrorMiss(c, id) }) }
func (h *Hooks) AbsentSuppressed(c, id string) {
	h.try(func() { h.inner.AbsentSuppressed(c, id) })
}
func (h *Hooks) EventDropped(c string) { h.try(func() { h.inner.EventDropped(c) }) }
func (h *Hooks) ReconcileError(c, id string, err error) {
	h.try(func() { h.inner.ReconcileError(c, id, err) })
}
func (h *Hooks) SyncCompleted(c string, n int, took time.Duration) {
	h.try(func() { h.inner.SyncCompleted(c, n, took) })
}
func (h *Hooks) SlowKeyScan(c string, n int, took time.Duration) {
	h.try(func() { h.inner.SlowKeyScan(c, n, took) })
}
