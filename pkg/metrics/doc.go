/*
Package metrics provides Prometheus metrics collection and exposition for
ReifyDB's storage, transaction, compiler, execution, and flow layers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Store: commit latency, tier sizes          │          │
	│  │  Txn: active count, commit latency,         │          │
	│  │       conflict rate                         │          │
	│  │  Compiler: cache hit/miss, compile latency  │          │
	│  │  VM: per-operator batch latency, row counts │          │
	│  │  Flow: cascade latency, backlog depth       │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint              │          │
	│  │  - Handler(): promhttp.Handler()            │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Usage

	timer := metrics.NewTimer()
	version, err := store.Commit(ctx, deltas)
	timer.ObserveDuration(metrics.StoreCommitDuration)

	timer = metrics.NewTimer()
	plan, err := compiler.Compile(source)
	timer.ObserveDurationVec(metrics.VMBatchDuration, "compile")

Reporting tier sizes on an interval without creating an import cycle into
pkg/store:

	collector := metrics.NewCollector(30*time.Second, func() (string, int) {
		return "hot", store.HotEntryCount()
	})
	collector.Start()
	defer collector.Stop()

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, which surfaces a packaging mistake immediately.

Timer Pattern:
  - Create a Timer at operation start, call ObserveDuration/ObserveDurationVec
    at the end (directly, or via defer for the common case).

No Global Poll Target:
  - Unlike a cluster manager with one list of nodes to walk, an embedded
    engine has no single thing to poll; Collector takes explicit
    TierSampler callbacks instead of reaching into another package's state.
*/
package metrics
