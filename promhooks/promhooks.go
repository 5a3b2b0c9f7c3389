// Package promhooks exposes cache events as Prometheus metrics.
package promhooks

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirrorkv/mirrorcache"
)

// Hooks implements mirrorcache.Hooks on top of a Prometheus registry.
// All metrics are labeled by collection; per-id labels would explode
// cardinality and are deliberately not exported.
type Hooks struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	suppressed  *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	reconcErrs  *prometheus.CounterVec
	syncEntries *prometheus.GaugeVec
	syncSeconds *prometheus.HistogramVec
	scanSeconds *prometheus.HistogramVec
}

var _ mirrorcache.Hooks = (*Hooks)(nil)

// New registers the metric set with reg. Registration failures (duplicate
// collectors) surface as an error so a composition root cannot silently end
// up with dead gauges.
func New(reg prometheus.Registerer) (*Hooks, error) {
	h := &Hooks{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirrorcache", Name: "mirror_hits_total",
			Help: "Reads served from the local mirror.",
		}, []string{"collection"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirrorcache", Name: "mirror_misses_total",
			Help: "Reads that fell through to the remote store.",
		}, []string{"collection"}),
		suppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirrorcache", Name: "absent_suppressed_total",
			Help: "Remote lookups suppressed by a live absent marker.",
		}, []string{"collection"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirrorcache", Name: "invalidation_events_dropped_total",
			Help: "Oldest queued invalidation events discarded on overflow.",
		}, []string{"collection"}),
		reconcErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mirrorcache", Name: "reconcile_errors_total",
			Help: "Invalidation reconciliations that failed transiently.",
		}, []string{"collection"}),
		syncEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mirrorcache", Name: "sync_entries",
			Help: "Entry count installed by the last full sync.",
		}, []string{"collection"}),
		syncSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mirrorcache", Name: "sync_duration_seconds",
			Help:    "Full sync duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
		scanSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mirrorcache", Name: "slow_key_scan_seconds",
			Help:    "Duration of key enumerations that exceeded the slow-scan threshold.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collection"}),
	}
	for _, col := range []prometheus.Collector{
		h.hits, h.misses, h.suppressed, h.dropped,
		h.reconcErrs, h.syncEntries, h.syncSeconds, h.scanSeconds,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) MirrorHit(c, _ string)        { h.hits.WithLabelValues(c).Inc() }
func (h *Hooks) MirrorMiss(c, _ string)       { h.misses.WithLabelValues(c).Inc() }
func (h *Hooks) AbsentSuppressed(c, _ string) { h.suppressed.WithLabelValues(c).Inc() }
func (h *Hooks) EventDropped(c string)        { h.dropped.WithLabelValues(c).Inc() }

func (h *Hooks) ReconcileError(c, _ string, _ error) {
	h.reconcErrs.WithLabelValues(c).Inc()
}

func (h *Hooks) SyncCompleted(c string, entries int, took time.Duration) {
	h.syncEntries.WithLabelValues(c).Set(float64(entries))
	h.syncSeconds.WithLabelValues(c).Observe(took.Seconds())
}

func (h *Hooks) SlowKeyScan(c string, _ int, took time.Duration) {
	h.scanSeconds.WithLabelValues(c).Observe(took.Seconds())
}
