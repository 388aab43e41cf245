package operator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/flow"
	flowop "github.com/reifydb/reifydb/pkg/flow/operator"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/vm"
)

func identCompiled(name string) vm.CompiledExpr {
	return func(b *vm.Batch) (*vm.Column, error) {
		c, _ := b.ColumnByName(name)
		return c, nil
	}
}

func TestAggregateRetractsOnRemove(t *testing.T) {
	agg, err := flowop.NewAggregate([]*rql.Expr{identExpr("g")}, []string{"g"},
		[]flowop.AggregateSpec{{Name: "total", Fn: "sum", Arg: identCompiled("v")}})
	require.NoError(t, err)

	ctx := context.Background()
	r1 := row([]string{"g", "v"}, "a", 10)
	r2 := row([]string{"g", "v"}, "a", 5)

	out, err := agg.Process(ctx, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Insert(r1), flow.Insert(r2)}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 1)
	total, _ := out.Diffs[0].Post.Get("total")
	assert.Equal(t, int64(15), total.AsInt())

	out, err = agg.Process(ctx, &flow.FlowChange{Diffs: []flow.FlowDiff{flow.Remove(r2)}})
	require.NoError(t, err)
	require.Len(t, out.Diffs, 1)
	total, _ = out.Diffs[0].Post.Get("total")
	assert.Equal(t, int64(10), total.AsInt())
}
