package operator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
)

func identExpr(name string) *rql.Expr { return &rql.Expr{Tag: rql.ExprIdent, Name: name} }

func row(cols []string, vals ...any) *flow.Row {
	values := make([]types.Value, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case string:
			values[i] = types.Utf8(x)
		case int:
			values[i] = types.Int(types.KindInt8, int64(x))
		}
	}
	return flow.NewRow(cols, values)
}

const (
	leftNode  flow.NodeID = "left"
	rightNode flow.NodeID = "right"
)

// TestJoinInnerMultisetLaw checks the inner-join output multiset equals
// {l x r : l.id = r.id} when the left row arrives before the right one,
// and that removing the left row retracts the joined row.
func TestJoinInnerMultisetLaw(t *testing.T) {
	j, err := flowop.NewJoinInner(identExpr("id"), identExpr("id"), leftNode, rightNode)
	require.NoError(t, err)
	ctx := context.Background()

	l1 := row([]string{"id", "name"}, 1, "alice")
	out, err := j.ProcessFrom(ctx, leftNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(l1)}})
	require.NoError(t, err)
	assert.Nil(t, out) // no matching right row yet

	r1 := row([]string{"id", "amount"}, 1, 100)
	out, err = j.ProcessFrom(ctx, rightNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(r1)}})
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Len(t, out.Diffs, 1)
	assert.Equal(t, flow.DiffInsert, out.Diffs[0].Kind)
	joined := out.Diffs[0].Post
	assert.Equal(t, []string{"id", "name", "id", "amount"}, joined.Columns)

	// Removing the left row retracts the joined output.
	out, err = j.ProcessFrom(ctx, leftNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Remove(l1)}})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, flow.DiffRemove, out.Diffs[0].Kind)
}

func TestLeftEagerJoinUnmatchedThenMatchedThenUnmatched(t *testing.T) {
	j, err := flowop.NewLeftEagerJoin(identExpr("id"), identExpr("id"), leftNode, rightNode, []string{"amount"})
	require.NoError(t, err)
	ctx := context.Background()

	l1 := row([]string{"id", "name"}, 1, "alice")
	out, err := j.ProcessFrom(ctx, leftNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(l1)}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 1)
	assert.Equal(t, flow.DiffInsert, out.Diffs[0].Kind)
	assert.False(t, out.Diffs[0].Post.Values[len(out.Diffs[0].Post.Values)-1].Defined, "right side undefined while unmatched")

	r1 := row([]string{"id", "amount"}, 1, 100)
	out, err = j.ProcessFrom(ctx, rightNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(r1)}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 2)
	assert.Equal(t, flow.DiffRemove, out.Diffs[0].Kind, "unmatched placeholder retracted")
	assert.Equal(t, flow.DiffInsert, out.Diffs[1].Kind, "joined row emitted")

	out, err = j.ProcessFrom(ctx, rightNode, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Remove(r1)}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 2)
	assert.Equal(t, flow.DiffRemove, out.Diffs[0].Kind, "joined row retracted")
	assert.Equal(t, flow.DiffInsert, out.Diffs[1].Kind, "unmatched placeholder re-emitted")
}
