// Package deferred implements the deferred Flow loop: a single-threaded
// CDC consumer that applies committed changes through every interested
// Flow's DAG outside the producing transaction, persisting view updates
// in their own follow-on transactions (the design notes, "Deferred flow").
//
// The poll-one-version-per-iteration structure and per-consumer
// checkpoint persistence mirror original_source/crates/sub-flow/src/
// loop.rs's FlowLoop/FlowLoopConsumer (SPEC_FULL.md D.5); the ticker-
// driven Start/Stop shape reuses pkg/metrics.Collector's goroutine-plus-
// stopCh idiom rather than introducing a new concurrency pattern.
package deferred

import (
	"context"
	"time"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/types"
)

// CDCSource is the committed-change feed the loop polls; pkg/store.Store
// satisfies this directly.
type CDCSource interface {
	CurrentVersion(ctx context.Context) (types.CommitVersion, error)
	CDCRange(ctx context.Context, from, to types.CommitVersion) ([]types.CDCEntry, error)
}

// Source decodes one committed Change into the FlowChange diff it
// represents for a source primitive, or ok=false if the change isn't a
// row write the loop cares about.
type Source interface {
	Decode(c types.Change) (sourceOf string, diff flow.FlowDiff, ok bool)
}

// Registry resolves which registered flows read from a source primitive,
// and reports any flow newly registered within a batch of changes so the
// loop can backfill it before admitting it to the live stream.
type Registry interface {
	FlowsFor(sourceOf string) []*flow.Flow
	NewFlows(changes []types.Change) []*flow.Flow
}

// NodeOperators resolves a Flow node's live operator instance. The same
// instance must come back for a given (flowID, node) across calls, since
// Aggregate/Join/Window state lives there between loop iterations.
type NodeOperators interface {
	OperatorFor(flowID string, node flow.NodeID) flowop.Operator
}

// FlowTxn accumulates one flow's sink writes for a single follow-on
// transaction.
type FlowTxn interface {
	Write(targetOf string, diff flow.FlowDiff) error
	Commit(ctx context.Context) error
	Rollback()
}

// Sink opens the follow-on transaction a processed flow's output is
// persisted into - separate from whatever command transaction produced
// the CDC entry being processed.
type Sink interface {
	Begin(ctx context.Context) (FlowTxn, error)
}

// Backfiller runs a newly registered flow against every source's history
// up to a version before it joins the live stream (the design notes,
// "Backfill").
type Backfiller interface {
	Backfill(ctx context.Context, fl *flow.Flow, upToVersion types.CommitVersion) error
}

// Checkpoints persists the last fully processed CommitVersion so the loop
// resumes correctly after a restart.
type Checkpoints interface {
	Load(ctx context.Context, consumerID string) (types.CommitVersion, error)
	Save(ctx context.Context, consumerID string, version types.CommitVersion) error
}

// Config tunes a Loop's polling cadence and backpressure threshold.
type Config struct {
	PollInterval time.Duration
	ConsumerID   string

	// MaxLag is the greatest (CurrentVersion - checkpoint) the loop
	// tolerates before it reports FLOW_LAG_EXCEEDED and stops, rather
	// than silently falling further behind CDC retention (the design notes,
	// "Backpressure").
	MaxLag uint64
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Millisecond
	}
	if c.ConsumerID == "" {
		c.ConsumerID = "flow-loop"
	}
	if c.MaxLag == 0 {
		c.MaxLag = 100_000
	}
	return c
}

// Loop is the single-threaded deferred-flow engine. It processes at most
// one committed version per tick (the design notes, "Backpressure") and stops
// with a diagnostic, rather than skipping versions, if it ever falls
// further behind than Config.MaxLag.
type Loop struct {
	cfg         Config
	cdc         CDCSource
	source      Source
	registry    Registry
	operators   NodeOperators
	sink        Sink
	backfill    Backfiller
	checkpoints Checkpoints

	active map[string]bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func New(cdc CDCSource, source Source, registry Registry, operators NodeOperators, sink Sink, backfill Backfiller, checkpoints Checkpoints, cfg Config) *Loop {
	return &Loop{
		cfg:         cfg.withDefaults(),
		cdc:         cdc,
		source:      source,
		registry:    registry,
		operators:   operators,
		sink:        sink,
		backfill:    backfill,
		checkpoints: checkpoints,
		active:      map[string]bool{},
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start spawns the polling goroutine. It returns immediately; call Stop
// to shut it down.
func (l *Loop) Start(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.PollInterval)
	go func() {
		defer close(l.doneCh)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := l.tick(ctx); err != nil {
					log.Logger.Error().Err(err).Msg("flow loop stopped")
					return
				}
			case <-l.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for it to do so.
func (l *Loop) Stop() {
	close(l.stopCh)
	<-l.doneCh
}

// ProcessOnce runs a single tick synchronously, without the ticker
// goroutine Start spawns. Callers that drive the loop deterministically
// (tests, a bench CLI stepping through a scripted workload) use this
// instead of Start/Stop.
func (l *Loop) ProcessOnce(ctx context.Context) error {
	return l.tick(ctx)
}

func (l *Loop) tick(ctx context.Context) error {
	checkpoint, err := l.checkpoints.Load(ctx, l.cfg.ConsumerID)
	if err != nil {
		return err
	}
	current, err := l.cdc.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current <= checkpoint {
		return nil
	}
	if uint64(current-checkpoint) > l.cfg.MaxLag {
		return diagnostic.Newf(diagnostic.FlowLagExceeded,
			"flow loop is %d versions behind checkpoint %d (max %d): CDC retention must exceed the processing lag",
			current-checkpoint, checkpoint, l.cfg.MaxLag)
	}

	next := checkpoint + 1
	entries, err := l.cdc.CDCRange(ctx, checkpoint, next)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		l.processEntry(ctx, entry)
	}
	return l.checkpoints.Save(ctx, l.cfg.ConsumerID, next)
}

// processEntry backfills any newly registered flows, then runs every
// flow interested in this entry's changes. A flow whose operator DAG
// fails is logged and skipped rather than aborting the whole entry
// (the design notes, "Deferred flow").
func (l *Loop) processEntry(ctx context.Context, entry types.CDCEntry) {
	for _, fl := range l.registry.NewFlows(entry.Changes) {
		if l.active[fl.ID] {
			continue
		}
		if entry.Version > 1 {
			if err := l.backfill.Backfill(ctx, fl, entry.Version-1); err != nil {
				log.Logger.Error().Str("flow", fl.ID).Err(err).Msg("failed to backfill flow")
				continue
			}
		}
		l.active[fl.ID] = true
	}

	bySource := map[string][]flow.FlowDiff{}
	for _, change := range entry.Changes {
		sourceOf, diff, ok := l.source.Decode(change)
		if !ok {
			continue
		}
		bySource[sourceOf] = append(bySource[sourceOf], diff)
	}
	if len(bySource) == 0 {
		return
	}

	seen := map[string]bool{}
	for sourceOf, diffs := range bySource {
		for _, fl := range l.registry.FlowsFor(sourceOf) {
			if !l.active[fl.ID] || seen[fl.ID] {
				continue
			}
			seen[fl.ID] = true
			if err := l.runFlowIsolated(ctx, fl, sourceOf, diffs, entry.Version); err != nil {
				log.Logger.Error().Str("flow", fl.ID).Err(err).Msg("failed to process flow")
			}
		}
	}
}

// runFlowIsolated persists one flow's output in its own follow-on
// transaction, rolling it back on failure so a broken flow never leaves
// partial writes behind.
func (l *Loop) runFlowIsolated(ctx context.Context, fl *flow.Flow, sourceOf string, diffs []flow.FlowDiff, version types.CommitVersion) error {
	txn, err := l.sink.Begin(ctx)
	if err != nil {
		return err
	}
	if err := l.runFlow(ctx, txn, fl, sourceOf, diffs, version); err != nil {
		txn.Rollback()
		return err
	}
	return txn.Commit(ctx)
}

// runFlow walks the DAG in topological order, tracking pending input per
// (node, origin edge) so a join node sees each side separately via
// flowop.EdgeAware rather than having both sides' diffs silently merged
// into one Process call (see pkg/flow/transactional.Cascade.runFlow,
// which shares this shape).
func (l *Loop) runFlow(ctx context.Context, txn FlowTxn, fl *flow.Flow, sourceOf string, diffs []flow.FlowDiff, version types.CommitVersion) error {
	order, err := fl.TopologicalOrder()
	if err != nil {
		return err
	}

	pending := map[flow.NodeID]map[flow.NodeID]*flow.FlowChange{}
	deliver := func(to, from flow.NodeID, change *flow.FlowChange) {
		if change == nil {
			return
		}
		inputs, ok := pending[to]
		if !ok {
			inputs = map[flow.NodeID]*flow.FlowChange{}
			pending[to] = inputs
		}
		if existing := inputs[from]; existing != nil {
			existing.Diffs = append(existing.Diffs, change.Diffs...)
		} else {
			inputs[from] = change
		}
	}

	for _, id := range fl.SourceNodes() {
		n := fl.Nodes[id]
		if n.SourceOf != sourceOf {
			continue
		}
		deliver(id, id, &flow.FlowChange{Origin: id, Version: uint64(version), Diffs: diffs})
	}

	for _, id := range order {
		inputs := pending[id]
		if len(inputs) == 0 {
			continue
		}
		n := fl.Nodes[id]
		op := l.operators.OperatorFor(fl.ID, id)
		if op == nil {
			continue
		}

		var outs []*flow.FlowChange
		if edgeAware, ok := op.(flowop.EdgeAware); ok {
			for origin, change := range inputs {
				out, err := edgeAware.ProcessFrom(ctx, origin, change)
				if err != nil {
					return diagnostic.Wrap(diagnostic.FlowOperatorFailed, err, "flow node failed to process change")
				}
				outs = append(outs, out)
			}
		} else {
			merged := &flow.FlowChange{Origin: id, Version: uint64(version)}
			for _, change := range inputs {
				merged.Diffs = append(merged.Diffs, change.Diffs...)
			}
			out, err := op.Process(ctx, merged)
			if err != nil {
				return diagnostic.Wrap(diagnostic.FlowOperatorFailed, err, "flow node failed to process change")
			}
			outs = append(outs, out)
		}

		for _, out := range outs {
			if out == nil {
				continue
			}
			if n.Kind == flow.NodeSinkTable || n.Kind == flow.NodeSinkView {
				for _, d := range out.Diffs {
					if err := txn.Write(n.SourceOf, d); err != nil {
						return err
					}
				}
				continue
			}
			for _, next := range fl.Downstream(id) {
				deliver(next, id, out)
			}
		}
	}
	return nil
}
