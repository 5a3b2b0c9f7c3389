package mirrorcache

import (
	"context"
	"sync"

	"github.com/mirrorkv/mirrorcache/remote"
)

// reconcileFunc resolves one invalidation event against the remote store and
// applies the outcome to the local mirror.
type reconcileFunc func(ctx context.Context, rawKey string)

// dispatcher consumes a remote invalidation subscription and hands each raw
// key to a fixed pool of reconciliation workers through a bounded queue.
//
// Reconciliation never runs on the goroutine that received the push: a
// same-connection re-read immediately after the push can still observe the
// stale value, so the re-fetch must happen on another execution context.
//
// The queue never blocks the delivery path. When full, the oldest queued
// event is discarded - a newer invalidation is worth more than a backlogged
// old one, and the full-sync reconciler heals whatever this loses.
type dispatcher struct {
	collection string
	queue      chan string
	reconcile  reconcileFunc
	hooks      Hooks
	log        Logger

	sub      remote.Subscription
	pumpWg   sync.WaitGroup
	workerWg sync.WaitGroup
	once     sync.Once
}

func newDispatcher(collection string, queueCap int, rec reconcileFunc, log Logger, hooks Hooks) *dispatcher {
	return &dispatcher{
		collection: collection,
		queue:      make(chan string, queueCap),
		reconcile:  rec,
		hooks:      hooks,
		log:        log,
	}
}

// start spawns the worker pool and the pump draining sub.
func (d *dispatcher) start(sub remote.Subscription, workers int) {
	d.sub = sub
	d.workerWg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	d.pumpWg.Add(1)
	go d.pump()
}

func (d *dispatcher) pump() {
	defer d.pumpWg.Done()
	for key := range d.sub.Keys() {
		d.enqueue(key)
	}
}

// enqueue adds a key, discarding the oldest queued event when full.
func (d *dispatcher) enqueue(key string) {
	for {
		select {
		case d.queue <- key:
			return
		default:
		}
		select {
		case <-d.queue:
			d.hooks.EventDropped(d.collection)
			d.log.Debug("invalidation queue full, dropped oldest event",
				Fields{"collection": d.collection})
		default:
		}
	}
}

func (d *dispatcher) worker() {
	defer d.workerWg.Done()
	for key := range d.queue {
		d.reconcile(context.Background(), key)
	}
}

// close tears the pipeline down: subscription, pump, queue, workers.
// Queued events are drained before the workers exit.
func (d *dispatcher) close() {
	d.once.Do(func() {
		if d.sub != nil {
			_ = d.sub.Close()
			d.pumpWg.Wait()
		}
		close(d.queue)
		d.workerWg.Wait()
	})
}
