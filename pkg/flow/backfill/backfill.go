// Package backfill implements the range-scan backfill a newly registered
// Flow runs before joining the live stream (the design notes, "Backfill"):
// scan every source at the flow's registration version, synthesize
// Insert diffs in row order, and feed them through the flow's DAG in
// topological order so a join's two sides are both populated before the
// join node ever fires - the same ordering guarantee that makes "replay
// from 0" and "replay from V+1 against prior state" produce identical
// view contents (the design notes, testable properties).
package backfill

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/types"
)

// Scanner reads every row of one source primitive as of a given version,
// already ordered by row number.
type Scanner interface {
	ScanAsOf(ctx context.Context, sourceOf string, asOf types.CommitVersion) ([]*flow.Row, error)
}

// NodeOperators resolves a Flow node's live operator instance, the same
// one the transactional cascade and deferred loop will use for this flow
// going forward - backfill's output must accumulate into the same
// Aggregate/Join/Window state they read.
type NodeOperators interface {
	OperatorFor(flowID string, node flow.NodeID) flowop.Operator
}

// FlowTxn accumulates sink writes produced during backfill, committed
// once as a single follow-on transaction at the backfill version.
type FlowTxn interface {
	Write(targetOf string, diff flow.FlowDiff) error
	Commit(ctx context.Context) error
	Rollback()
}

type Sink interface {
	Begin(ctx context.Context) (FlowTxn, error)
}

// Backfill runs the algorithm against one Flow.
type Backfill struct {
	Scanner   Scanner
	Operators NodeOperators
	Sink      Sink
}

// Backfill scans every source node's primitive as of upToVersion and
// propagates the resulting Insert diffs through the flow, committing
// accumulated sink writes at that version. Backfilling at version 0 is a
// no-op: there is no history yet to replay. It satisfies
// pkg/flow/deferred.Backfiller.
func (b *Backfill) Backfill(ctx context.Context, fl *flow.Flow, upToVersion types.CommitVersion) error {
	if upToVersion == 0 {
		return nil
	}

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
		rows, err := b.Scanner.ScanAsOf(ctx, n.SourceOf, upToVersion)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		diffs := make([]flow.FlowDiff, len(rows))
		for i, r := range rows {
			diffs[i] = flow.Insert(r)
		}
		deliver(id, id, &flow.FlowChange{Origin: id, Version: uint64(upToVersion), Diffs: diffs})
	}

	txn, err := b.Sink.Begin(ctx)
	if err != nil {
		return err
	}

	for _, id := range order {
		inputs := pending[id]
		if len(inputs) == 0 {
			continue
		}
		n := fl.Nodes[id]
		op := b.Operators.OperatorFor(fl.ID, id)
		if op == nil {
			continue
		}

		var outs []*flow.FlowChange
		if edgeAware, ok := op.(flowop.EdgeAware); ok {
			for origin, change := range inputs {
				out, err := edgeAware.ProcessFrom(ctx, origin, change)
				if err != nil {
					txn.Rollback()
					return diagnostic.Wrap(diagnostic.FlowOperatorFailed, err, "flow node failed during backfill")
				}
				outs = append(outs, out)
			}
		} else {
			merged := &flow.FlowChange{Origin: id, Version: uint64(upToVersion)}
			for _, change := range inputs {
				merged.Diffs = append(merged.Diffs, change.Diffs...)
			}
			out, err := op.Process(ctx, merged)
			if err != nil {
				txn.Rollback()
				return diagnostic.Wrap(diagnostic.FlowOperatorFailed, err, "flow node failed during backfill")
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
						txn.Rollback()
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

	return txn.Commit(ctx)
}
