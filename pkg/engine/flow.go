package engine

import (
	"context"
	"strconv"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/encoding"
	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/flow/backfill"
	"github.com/reifydb/reifydb/pkg/flow/deferred"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/types"
)

// txnSourceAdapter and deferredSourceAdapter exist only because Go can't
// have one method satisfy transactional.Source.Decode(types.Delta) and
// deferred.Source.Decode(types.Change) at once - two different parameter
// types, not overloadable. Both forward to the engine methods that do the
// real decoding.
type txnSourceAdapter struct{ e *Engine }

func (a txnSourceAdapter) Decode(d types.Delta) (string, flow.FlowDiff, bool) { return a.e.DecodeDelta(d) }

type deferredSourceAdapter struct{ e *Engine }

func (a deferredSourceAdapter) Decode(c types.Change) (string, flow.FlowDiff, bool) {
	return a.e.DecodeChange(c)
}

// deferredSinkAdapter and backfillSinkAdapter each declare Begin with the
// exact interface-named return type deferred.Sink/backfill.Sink require;
// the concrete flowTxn they return structurally satisfies both FlowTxn
// interfaces since the method sets are identical.
type deferredSinkAdapter struct{ e *Engine }

func (a deferredSinkAdapter) Begin(ctx context.Context) (deferred.FlowTxn, error) { return a.e.beginFlowTxn(ctx) }

type backfillSinkAdapter struct{ e *Engine }

func (a backfillSinkAdapter) Begin(ctx context.Context) (backfill.FlowTxn, error) { return a.e.beginFlowTxn(ctx) }

// DecodeDelta implements transactional.Source: it reads the row's value at
// the store's current version to tell an Insert from an Update, since a
// pre-commit Delta carries only the new value. Remove/Unset read the same
// way to build the Pre row a retraction needs.
func (e *Engine) DecodeDelta(d types.Delta) (string, flow.FlowDiff, bool) {
	primitiveID, rowNumber, ok := types.DecodeRowKey(d.Key)
	if !ok {
		return "", flow.FlowDiff{}, false
	}
	schema := e.schemaFor(primitiveID)
	if schema == nil {
		return "", flow.FlowDiff{}, false
	}
	sourceOf := strconv.FormatUint(primitiveID, 10)

	ctx := bg()
	version, _ := e.store.CurrentVersion(ctx)
	existing, existed, _ := e.store.Get(ctx, d.Key, version)

	switch d.Kind {
	case types.DeltaRemove, types.DeltaUnset:
		if !existed {
			return "", flow.FlowDiff{}, false
		}
		pre, err := decodeFlowRow(schema, rowNumber, existing)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		return sourceOf, flow.Remove(pre), true

	case types.DeltaSet:
		post, err := decodeFlowRow(schema, rowNumber, d.Values)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		if !existed {
			return sourceOf, flow.Insert(post), true
		}
		pre, err := decodeFlowRow(schema, rowNumber, existing)
		if err != nil {
			return sourceOf, flow.Insert(post), true
		}
		return sourceOf, flow.Update(pre, post), true

	default:
		return "", flow.FlowDiff{}, false
	}
}

// DecodeChange implements deferred.Source: unlike a Delta, a CDC Change
// already carries both the pre- and post-image the store resolved at
// commit time, so no extra lookup is needed.
func (e *Engine) DecodeChange(c types.Change) (string, flow.FlowDiff, bool) {
	primitiveID, rowNumber, ok := types.DecodeRowKey(c.Key)
	if !ok {
		return "", flow.FlowDiff{}, false
	}
	schema := e.schemaFor(primitiveID)
	if schema == nil {
		return "", flow.FlowDiff{}, false
	}
	sourceOf := strconv.FormatUint(primitiveID, 10)

	switch c.Kind {
	case types.ChangeInsert:
		post, err := decodeFlowRow(schema, rowNumber, c.Post)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		return sourceOf, flow.Insert(post), true
	case types.ChangeUpdate:
		pre, err := decodeFlowRow(schema, rowNumber, c.Pre)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		post, err := decodeFlowRow(schema, rowNumber, c.Post)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		return sourceOf, flow.Update(pre, post), true
	case types.ChangeDelete:
		pre, err := decodeFlowRow(schema, rowNumber, c.Pre)
		if err != nil {
			return "", flow.FlowDiff{}, false
		}
		return sourceOf, flow.Remove(pre), true
	default:
		return "", flow.FlowDiff{}, false
	}
}

func decodeFlowRow(schema *encoding.Schema, rowNumber uint64, buf []byte) (*flow.Row, error) {
	row, err := encoding.Decode(schema, buf)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(schema.Fields))
	values := make([]types.Value, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
		values[i] = row.GetValue(i)
	}
	r := flow.NewRow(names, values)
	_ = rowNumber
	return r, nil
}

// Encode implements transactional.Sink: it resolves which physical row a
// view diff targets through the content-addressed viewIndex (views have no
// primary key of their own - the diff's columns are all there is to
// identify a row by), and returns the Delta(s) that write it. Subscribe
// notification is handled by flowTxn.Write/Commit, not here, so a single
// backfill or deferred-loop tick writing many diffs still produces one
// batched FlowChange per view rather than one per diff.
func (e *Engine) Encode(targetOf string, diff flow.FlowDiff) ([]types.Delta, error) {
	viewID, err := strconv.ParseUint(targetOf, 10, 64)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.InternalError, err, "invalid sink target")
	}
	schema := e.schemaFor(viewID)
	if schema == nil {
		return nil, errUnknownPrimitive(viewID)
	}

	e.viewMu.Lock()
	index, ok := e.viewIndex[viewID]
	if !ok {
		index = map[uint64]uint64{}
		e.viewIndex[viewID] = index
	}

	var deltas []types.Delta

	switch diff.Kind {
	case flow.DiffInsert:
		rowNum := e.nextRowNumber(viewID)
		hash := hashRow(diff.Post)
		index[hash] = rowNum
		encoded, err := encodeFlowRow(schema, diff.Post)
		if err != nil {
			e.viewMu.Unlock()
			return nil, err
		}
		deltas = append(deltas, types.Set(types.RowKey(viewID, rowNum), encoded))

	case flow.DiffUpdate:
		preHash := hashRow(diff.Pre)
		rowNum, existed := index[preHash]
		if !existed {
			rowNum = e.nextRowNumber(viewID)
		}
		delete(index, preHash)
		index[hashRow(diff.Post)] = rowNum
		encoded, err := encodeFlowRow(schema, diff.Post)
		if err != nil {
			e.viewMu.Unlock()
			return nil, err
		}
		deltas = append(deltas, types.Set(types.RowKey(viewID, rowNum), encoded))

	case flow.DiffRemove:
		preHash := hashRow(diff.Pre)
		if rowNum, existed := index[preHash]; existed {
			delete(index, preHash)
			deltas = append(deltas, types.Remove(types.RowKey(viewID, rowNum)))
		}
	}
	e.viewMu.Unlock()

	return deltas, nil
}

func encodeFlowRow(schema *encoding.Schema, r *flow.Row) ([]byte, error) {
	row := encoding.Allocate(schema)
	for i, f := range schema.Fields {
		v, ok := r.Get(f.Name)
		if !ok {
			continue
		}
		row.SetValue(i, v)
	}
	return row.Encode(), nil
}

// FlowsFor and NewFlows implement both transactional.Registry and
// deferred.Registry (identical method signatures in both). NewFlows drains
// the flows registered since the last drain, so the deferred loop
// backfills each exactly once.
func (e *Engine) FlowsFor(sourceOf string) []*flow.Flow {
	e.flowMu.Lock()
	defer e.flowMu.Unlock()
	runtimes := e.flowsBySource[sourceOf]
	out := make([]*flow.Flow, len(runtimes))
	for i, rf := range runtimes {
		out[i] = rf.graph
	}
	return out
}

func (e *Engine) NewFlows(changes []types.Change) []*flow.Flow {
	_ = changes
	e.flowMu.Lock()
	defer e.flowMu.Unlock()
	out := make([]*flow.Flow, len(e.pendingFlows))
	for i, rf := range e.pendingFlows {
		out[i] = rf.graph
	}
	e.pendingFlows = nil
	return out
}

// OperatorFor implements transactional.NodeOperators, deferred.NodeOperators
// and backfill.NodeOperators at once.
func (e *Engine) OperatorFor(flowID string, node flow.NodeID) flowop.Operator {
	e.flowMu.Lock()
	defer e.flowMu.Unlock()
	rf, ok := e.flows[flowID]
	if !ok {
		return nil
	}
	return rf.operators[node]
}

// ScanAsOf implements backfill.Scanner, reading sourceOf's rows directly
// from the store at a historical version (not through a *txn.Txn, since
// backfill runs outside any single transaction's snapshot).
func (e *Engine) ScanAsOf(ctx context.Context, sourceOf string, asOf types.CommitVersion) ([]*flow.Row, error) {
	primitiveID, err := strconv.ParseUint(sourceOf, 10, 64)
	if err != nil {
		return nil, diagnostic.Wrap(diagnostic.InternalError, err, "invalid scan source")
	}
	schema := e.schemaFor(primitiveID)
	if schema == nil {
		return nil, errUnknownPrimitive(primitiveID)
	}
	it, err := e.store.Prefix(ctx, types.RowPrefix(primitiveID), asOf)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var rows []*flow.Row
	for it.Next() {
		_, rowNumber, ok := types.DecodeRowKey(it.Key())
		if !ok {
			continue
		}
		r, err := decodeFlowRow(schema, rowNumber, it.Value())
		if err != nil {
			return nil, err
		}
		rows = append(rows, r)
	}
	return rows, it.Err()
}

// Load and Save implement deferred.Checkpoints, persisting the last
// fully-processed version directly through the store (bypassing the
// transaction coordinator: this is control-plane bookkeeping, not row
// data subject to conflict detection), reusing the flow-operator-state key
// range with flowID=0/nodeID=0 so no new key kind is needed.
func (e *Engine) Load(ctx context.Context, consumerID string) (types.CommitVersion, error) {
	key := types.FlowOperatorStateKey(0, 0, []byte("checkpoint:"+consumerID))
	value, ok, err := e.store.Get(ctx, key, types.VersionLatest)
	if err != nil {
		return 0, err
	}
	if !ok || len(value) != 8 {
		return types.VersionBeforeAnyCommit, nil
	}
	return types.CommitVersion(beUint64(value)), nil
}

func (e *Engine) Save(ctx context.Context, consumerID string, version types.CommitVersion) error {
	key := types.FlowOperatorStateKey(0, 0, []byte("checkpoint:"+consumerID))
	buf := make([]byte, 8)
	putBeUint64(buf, uint64(version))
	_, err := e.store.Commit(ctx, []types.Delta{types.Set(key, buf)})
	return err
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

func putBeUint64(b []byte, v uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}

// flowTxn accumulates one flow's sink writes for a single follow-on
// transaction, used by both the deferred loop and backfill (their FlowTxn
// interfaces are structurally identical). It commits directly through the
// store rather than through *txn.Txn: a follow-on flow write is not
// subject to the same write-write conflict detection as a user command,
// since it is derived, not concurrently contended, data.
type flowTxn struct {
	e      *Engine
	deltas []types.Delta
	notify map[uint64][]*flow.Row // viewID -> rows affected during this txn, for Subscribe
}

func (e *Engine) beginFlowTxn(ctx context.Context) (*flowTxn, error) {
	return &flowTxn{e: e, notify: map[uint64][]*flow.Row{}}, nil
}

// Write encodes diff into deltas and, if targetOf names a view with live
// subscriptions, remembers the row diff touched so Commit can push one
// batched notification per view once the write actually lands - not one
// notification per diff, so a backfill populating N rows produces exactly
// one FlowChange for a subscriber, matching what a single query against the
// view would have returned.
func (t *flowTxn) Write(targetOf string, diff flow.FlowDiff) error {
	deltas, err := t.e.Encode(targetOf, diff)
	if err != nil {
		return err
	}
	t.deltas = append(t.deltas, deltas...)

	if viewID, err := strconv.ParseUint(targetOf, 10, 64); err == nil {
		var affected *flow.Row
		if diff.Kind == flow.DiffRemove {
			affected = diff.Pre
		} else {
			affected = diff.Post
		}
		if affected != nil {
			t.notify[viewID] = append(t.notify[viewID], affected)
		}
	}
	return nil
}

func (t *flowTxn) Commit(ctx context.Context) error {
	if len(t.deltas) == 0 {
		return nil
	}
	if _, err := t.e.store.Commit(ctx, t.deltas); err != nil {
		return err
	}
	for viewID, rows := range t.notify {
		t.e.notifySubscribersBatch(viewID, rows)
	}
	return nil
}

func (t *flowTxn) Rollback() {
	t.deltas = nil
	t.notify = nil
}

// registerRuntimeFlow finalizes a Flow graph into live per-node operator
// state, indexes it by every source primitive it reads, and queues it for
// backfill (transactional views backfill synchronously at registration;
// deferred views are picked up by the next loop tick's NewFlows drain).
func (e *Engine) registerRuntimeFlow(catalogID uint64, g *flow.Flow, sinkPrimitiveID uint64, kind catalog.ViewKind, operators map[flow.NodeID]flowop.Operator) *runtimeFlow {
	rf := &runtimeFlow{id: g.ID, catalogID: catalogID, graph: g, operators: operators, sinkPrimitiveID: sinkPrimitiveID, sinkKind: kind}

	e.flowMu.Lock()
	e.flows[g.ID] = rf
	for id := range g.Nodes {
		n := g.Nodes[id]
		if n.SourceOf == "" {
			continue
		}
		e.flowsBySource[n.SourceOf] = append(e.flowsBySource[n.SourceOf], rf)
	}
	if kind == catalog.ViewDeferred {
		e.pendingFlows = append(e.pendingFlows, rf)
	}
	e.flowMu.Unlock()
	return rf
}
