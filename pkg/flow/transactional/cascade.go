// Package transactional implements the inline Flow cascade: pre-commit
// interceptor logic that runs every Flow interested in a committing
// transaction's writes, folding the resulting view writes back into the
// same commit (the design notes, "Transactional (inline) flow").
package transactional

import (
	"context"

	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/txn/interceptor"
	"github.com/reifydb/reifydb/pkg/types"
)

// Source decodes a committed Delta into the FlowChange diff it represents
// for one source primitive, and Sink encodes a Flow's emitted output diffs
// back into Deltas appended to the committing transaction - both
// implemented by pkg/engine, which alone has the catalog and row-encoding
// context the flow layer itself doesn't depend on (the same import-cycle
// avoidance shape as pkg/vm.RowReader).
type Source interface {
	// Decode returns the source primitive name a Delta belongs to and
	// the diff it represents, or ok=false if the Delta isn't a row
	// write this cascade cares about.
	Decode(d types.Delta) (sourceOf string, diff flow.FlowDiff, ok bool)
}

type Sink interface {
	// Encode turns one Flow's emitted output diff for targetOf (a view
	// or table primitive name) into Deltas to append to the
	// transaction.
	Encode(targetOf string, diff flow.FlowDiff) ([]types.Delta, error)
}

// Registry resolves which registered Flows read from a given source
// primitive - a flow is "interested" if it has a SourceTable/SourceView
// node naming that primitive (the design notes, "Transactional (inline) flow",
// step (a)).
type Registry interface {
	FlowsFor(sourceOf string) []*flow.Flow
}

// NodeOperators resolves a Flow's runtime operator implementation by node
// id. Implementations keep one Operator instance alive per (flow id, node
// id) for the Flow's lifetime, since Aggregate/Join/Window nodes carry
// state across commits.
type NodeOperators interface {
	OperatorFor(flowID string, node flow.NodeID) flowop.Operator
}

// Cascade is the pre-commit interceptor that runs every interested flow
// inline with the committing transaction (the design notes, "Transactional
// (inline) flow"). It holds no state of its own between commits; all flow
// operator state lives in whatever NodeOperators returns.
type Cascade struct {
	interceptor.Base
	Registry  Registry
	Operators NodeOperators
	Source    Source
	Sink      Sink
	Version   func() uint64
}

func (c *Cascade) PreCommit(ctx context.Context, ev *interceptor.Event) error {
	bySource := map[string][]flow.FlowDiff{}
	for _, d := range ev.Deltas {
		sourceOf, diff, ok := c.Source.Decode(d)
		if !ok {
			continue
		}
		bySource[sourceOf] = append(bySource[sourceOf], diff)
	}
	if len(bySource) == 0 {
		return nil
	}

	var version uint64
	if c.Version != nil {
		version = c.Version()
	}

	seen := map[string]bool{}
	for sourceOf, diffs := range bySource {
		for _, fl := range c.Registry.FlowsFor(sourceOf) {
			if seen[fl.ID] {
				continue
			}
			seen[fl.ID] = true
			if err := c.runFlow(ctx, fl, sourceOf, diffs, version, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// runFlow propagates diffs through one Flow's DAG in topological order
// (the design notes, step (b)), merging per-row diffs reaching the same node
// into one batched FlowChange (step (c)), and appending every Sink node's
// output to the committing transaction's pending writes (step (d)/(e)).
//
// pending is keyed by (node, origin edge) rather than just node: a join
// node has two upstream edges and must see each side's diffs separately
// (flowop.EdgeAware), where every other node has exactly one edge and
// just gets its single input merged and processed normally.
func (c *Cascade) runFlow(ctx context.Context, fl *flow.Flow, sourceOf string, diffs []flow.FlowDiff, version uint64, ev *interceptor.Event) error {
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
		deliver(id, id, &flow.FlowChange{Origin: id, Version: version, Diffs: diffs})
	}

	for _, id := range order {
		inputs := pending[id]
		if len(inputs) == 0 {
			continue
		}
		n := fl.Nodes[id]
		op := c.Operators.OperatorFor(fl.ID, id)
		if op == nil {
			continue
		}

		var outs []*flow.FlowChange
		if edgeAware, ok := op.(flowop.EdgeAware); ok {
			for origin, change := range inputs {
				out, err := edgeAware.ProcessFrom(ctx, origin, change)
				if err != nil {
					return err
				}
				outs = append(outs, out)
			}
		} else {
			merged := &flow.FlowChange{Origin: id, Version: version}
			for _, change := range inputs {
				merged.Diffs = append(merged.Diffs, change.Diffs...)
			}
			out, err := op.Process(ctx, merged)
			if err != nil {
				return err
			}
			outs = append(outs, out)
		}

		for _, out := range outs {
			if out == nil {
				continue
			}
			if n.Kind == flow.NodeSinkTable || n.Kind == flow.NodeSinkView {
				deltas, err := c.sinkDeltas(n.SourceOf, out)
				if err != nil {
					return err
				}
				ev.Deltas = append(ev.Deltas, deltas...)
				continue
			}
			for _, next := range fl.Downstream(id) {
				deliver(next, id, out)
			}
		}
	}
	return nil
}

func (c *Cascade) sinkDeltas(targetOf string, change *flow.FlowChange) ([]types.Delta, error) {
	var out []types.Delta
	for _, d := range change.Diffs {
		deltas, err := c.Sink.Encode(targetOf, d)
		if err != nil {
			return nil, err
		}
		out = append(out, deltas...)
	}
	return out, nil
}
