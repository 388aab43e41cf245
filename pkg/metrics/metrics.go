package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Store metrics
	StoreCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reifydb_store_commit_duration_seconds",
			Help:    "Time taken to commit a batch of deltas",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreCommittedVersions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_store_committed_versions_total",
			Help: "Total number of commit versions assigned",
		},
	)

	StoreCompactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reifydb_store_compaction_duration_seconds",
			Help:    "Time taken for a tier-merge compaction pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	StoreTierEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_store_tier_entries",
			Help: "Number of versioned entries per storage tier",
		},
		[]string{"tier"},
	)

	// Transaction metrics
	TxnActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_txn_active",
			Help: "Currently open transactions by kind",
		},
		[]string{"kind"},
	)

	TxnCommitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_txn_commit_duration_seconds",
			Help:    "Time from begin to commit for a transaction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	TxnConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_txn_conflicts_total",
			Help: "Total number of commits rejected due to write conflicts",
		},
	)

	// Compiler metrics
	CompileCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_compile_cache_hits_total",
			Help: "Total number of compile-cache hits by source hash",
		},
	)

	CompileCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reifydb_compile_cache_misses_total",
			Help: "Total number of compile-cache misses by source hash",
		},
	)

	CompileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reifydb_compile_duration_seconds",
			Help:    "Time taken to compile a statement to bytecode",
			Buckets: prometheus.DefBuckets,
		},
	)

	// VM metrics
	VMBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_vm_batch_duration_seconds",
			Help:    "Time taken for one operator to process one batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operator"},
	)

	VMRowsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_vm_rows_processed_total",
			Help: "Total rows processed by operator",
		},
		[]string{"operator"},
	)

	// Flow metrics
	FlowCascadeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reifydb_flow_cascade_duration_seconds",
			Help:    "Time taken to propagate a change through a flow graph",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // "inline" or "deferred"
	)

	FlowBacklogDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reifydb_flow_backlog_depth",
			Help: "Pending CDC entries not yet consumed by a deferred flow",
		},
		[]string{"flow"},
	)

	FlowOperatorErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reifydb_flow_operator_errors_total",
			Help: "Total operator failures encountered while processing a flow",
		},
		[]string{"flow", "operator"},
	)
)

func init() {
	prometheus.MustRegister(StoreCommitDuration)
	prometheus.MustRegister(StoreCommittedVersions)
	prometheus.MustRegister(StoreCompactionDuration)
	prometheus.MustRegister(StoreTierEntries)

	prometheus.MustRegister(TxnActive)
	prometheus.MustRegister(TxnCommitDuration)
	prometheus.MustRegister(TxnConflictsTotal)

	prometheus.MustRegister(CompileCacheHits)
	prometheus.MustRegister(CompileCacheMisses)
	prometheus.MustRegister(CompileDuration)

	prometheus.MustRegister(VMBatchDuration)
	prometheus.MustRegister(VMRowsProcessed)

	prometheus.MustRegister(FlowCascadeDuration)
	prometheus.MustRegister(FlowBacklogDepth)
	prometheus.MustRegister(FlowOperatorErrorsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
