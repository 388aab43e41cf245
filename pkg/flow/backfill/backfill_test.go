package backfill_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/flow/backfill"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// fakeScanner answers ScanAsOf from a canned row set, ignoring asOf - the
// test only exercises backfill's DAG-walking order, not version selection.
type fakeScanner struct {
	rows map[string][]*flow.Row
}

func (s fakeScanner) ScanAsOf(_ context.Context, sourceOf string, _ types.CommitVersion) ([]*flow.Row, error) {
	return s.rows[sourceOf], nil
}

type fakeOperators struct {
	byNode map[flow.NodeID]flowop.Operator
}

func (o fakeOperators) OperatorFor(_ string, node flow.NodeID) flowop.Operator {
	return o.byNode[node]
}

// fakeSink records every (targetOf, diff) pair Write receives, in order, so
// a test can compare backfill's output against a direct replay of the same
// rows through the same operator chain.
type fakeSink struct {
	txn *fakeFlowTxn
}

type fakeFlowTxn struct {
	writes     []flow.FlowDiff
	committed  bool
	rolledBack bool
}

func (s *fakeSink) Begin(context.Context) (backfill.FlowTxn, error) {
	s.txn = &fakeFlowTxn{}
	return s.txn, nil
}

func (t *fakeFlowTxn) Write(_ string, diff flow.FlowDiff) error {
	t.writes = append(t.writes, diff)
	return nil
}
func (t *fakeFlowTxn) Commit(context.Context) error { t.committed = true; return nil }
func (t *fakeFlowTxn) Rollback()                    { t.rolledBack = true }

func intRow(name string, v int64) *flow.Row {
	return flow.NewRow([]string{name}, []types.Value{types.Int(types.KindInt4, v)})
}

func ageAtLeast18() (*flowop.Filter, error) {
	predicate := func(b *vm.Batch) (*vm.Column, error) {
		col, _ := b.ColumnByName("age")
		valid := make([]bool, len(col.Values))
		vals := make([]types.Value, len(col.Values))
		for i, v := range col.Values {
			vals[i] = types.Bool(v.AsInt() >= 18)
			valid[i] = true
		}
		return &vm.Column{Name: "ok", Kind: types.KindBool, Values: vals, Valid: valid}, nil
	}
	return &flowop.Filter{Predicate: predicate}, nil
}

// buildGraph wires Source(table "people") -> Filter(age>=18) -> Sink(table "adults").
func buildGraph(t *testing.T) (*flow.Flow, flowop.Operator) {
	t.Helper()
	g := flow.New("people-adults")
	g.AddNode(&flow.Node{ID: "src", Kind: flow.NodeSourceTable, SourceOf: "people"})
	g.AddNode(&flow.Node{ID: "filter", Kind: flow.NodeFilter})
	g.AddNode(&flow.Node{ID: "sink", Kind: flow.NodeSinkTable, SourceOf: "adults"})
	require.NoError(t, g.AddEdge("src", "filter"))
	require.NoError(t, g.AddEdge("filter", "sink"))

	filterOp, err := ageAtLeast18()
	require.NoError(t, err)
	return g, filterOp
}

// TestBackfillEqualsReplay asserts that scanning a source as of a version
// and running it through Backfill produces exactly the diffs a direct,
// one-call-per-row replay through the same operator chain would produce:
// backfill is just replay-from-scratch, batched into one flow txn.
func TestBackfillEqualsReplay(t *testing.T) {
	rows := []*flow.Row{
		intRow("age", 12),
		intRow("age", 19),
		intRow("age", 40),
	}

	g, filterOp := buildGraph(t)
	scanner := fakeScanner{rows: map[string][]*flow.Row{"people": rows}}
	ops := fakeOperators{byNode: map[flow.NodeID]flowop.Operator{"filter": filterOp}}
	sink := &fakeSink{}

	b := &backfill.Backfill{Scanner: scanner, Operators: ops, Sink: sink}
	require.NoError(t, b.Backfill(context.Background(), g, types.CommitVersion(5)))

	require.NotNil(t, sink.txn)
	assert.True(t, sink.txn.committed)
	assert.False(t, sink.txn.rolledBack)

	// Direct replay: process each row through the same filter one at a
	// time and collect what passes, same as backfill's single batched
	// Process call should have produced.
	var replayed []flow.FlowDiff
	for _, r := range rows {
		out, err := filterOp.Process(context.Background(), &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(r)}})
		require.NoError(t, err)
		if out != nil {
			replayed = append(replayed, out.Diffs...)
		}
	}

	require.Len(t, sink.txn.writes, len(replayed))
	require.Len(t, sink.txn.writes, 2)
	for i, d := range sink.txn.writes {
		assert.Equal(t, replayed[i].Kind, d.Kind)
		gotAge, _ := d.Post.Get("age")
		wantAge, _ := replayed[i].Post.Get("age")
		assert.Equal(t, wantAge.AsInt(), gotAge.AsInt())
	}
}

// TestBackfillAtVersionZeroIsNoop mirrors the documented special case: a
// flow registered before any commit has nothing to replay.
func TestBackfillAtVersionZeroIsNoop(t *testing.T) {
	g, filterOp := buildGraph(t)
	scanner := fakeScanner{rows: map[string][]*flow.Row{"people": {intRow("age", 40)}}}
	ops := fakeOperators{byNode: map[flow.NodeID]flowop.Operator{"filter": filterOp}}
	sink := &fakeSink{}

	b := &backfill.Backfill{Scanner: scanner, Operators: ops, Sink: sink}
	require.NoError(t, b.Backfill(context.Background(), g, types.CommitVersion(0)))
	assert.Nil(t, sink.txn)
}
