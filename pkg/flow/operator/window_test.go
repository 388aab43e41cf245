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

func rowWithTime(cols []string, group string, t int64, v int) *flow.Row {
	return flow.NewRow(cols, []types.Value{
		types.Utf8(group),
		types.Int(types.KindInt8, t),
		types.Int(types.KindInt8, int64(v)),
	})
}

func TestWindowClosesOnlyOnWatermarkAdvance(t *testing.T) {
	w, err := flowop.NewWindow([]*rql.Expr{identExpr("g")}, []string{"g"}, identExpr("ts"), 10,
		[]flowop.AggregateSpec{{Name: "total", Fn: "sum", Arg: identCompiled("v")}})
	require.NoError(t, err)
	cols := []string{"g", "ts", "v"}

	out, err := w.Process(context.Background(), &flow.FlowChange{Diffs: []flow.FlowDiff{
		flow.Insert(rowWithTime(cols, "a", 3, 5)), flow.Insert(rowWithTime(cols, "a", 7, 6))}})
	require.NoError(t, err)
	assert.Nil(t, out) // Process only accumulates

	assert.Nil(t, w.WatermarkAdvance(9)) // pane [0,10) still open
	closed := w.WatermarkAdvance(10)
	require.NotNil(t, closed)
	require.Len(t, closed.Diffs, 1)
	total, _ := closed.Diffs[0].Post.Get("total")
	assert.Equal(t, int64(11), total.AsInt())

	assert.Nil(t, w.WatermarkAdvance(20)) // already emitted
}
