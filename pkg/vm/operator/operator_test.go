package operator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
	"github.com/reifydb/reifydb/pkg/vm/function"
	"github.com/reifydb/reifydb/pkg/vm/operator"
)

func col(name string, kind types.Kind) vm.ColumnSpec { return vm.ColumnSpec{Name: name, Kind: kind} }

func drainAll(t *testing.T, op vm.Operator) *vm.Batch {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, op.Initialize(ctx))
	var whole *vm.Batch
	for {
		b, err := op.Next(ctx)
		require.NoError(t, err)
		if b == nil {
			break
		}
		whole = vm.Concat(whole, b)
	}
	return whole
}

func inlineGV(rows ...[2]any) *operator.InlineData {
	cols := []vm.ColumnSpec{col("g", types.KindUtf8), col("v", types.KindInt8)}
	var data [][]types.Value
	for _, r := range rows {
		data = append(data, []types.Value{types.Utf8(r[0].(string)), types.Int(types.KindInt8, int64(r[1].(int)))})
	}
	return operator.NewInlineData(cols, data)
}

func ident(name string) vm.CompiledExpr {
	return func(b *vm.Batch) (*vm.Column, error) {
		c, _ := b.ColumnByName(name)
		return c, nil
	}
}

func TestAggregateGroupByLexicographicOrder(t *testing.T) {
	src := inlineGV([2]any{"a", 1}, [2]any{"a", 2}, [2]any{"b", 3})
	sumFn, _ := function.LookupAggregate("sum")
	agg := operator.NewAggregate(src, []vm.CompiledExpr{ident("g")}, []string{"g"},
		[]operator.AggregateSpec{{Name: "s", Fn: sumFn, Arg: ident("v")}})

	result := drainAll(t, agg)
	require.NotNil(t, result)
	require.Equal(t, 2, result.NumRows())
	gCol, _ := result.ColumnByName("g")
	sCol, _ := result.ColumnByName("s")
	assert.Equal(t, "a", gCol.Values[0].AsString())
	assert.Equal(t, int64(3), sCol.Values[0].AsInt())
	assert.Equal(t, "b", gCol.Values[1].AsString())
	assert.Equal(t, int64(3), sCol.Values[1].AsInt())
}

func TestAggregateEmptyGroupByIsGlobal(t *testing.T) {
	cols := []vm.ColumnSpec{col("v", types.KindInt8)}
	src := operator.NewInlineData(cols, [][]types.Value{
		{types.Int(types.KindInt8, 10)},
		{types.Int(types.KindInt8, 20)},
	})
	countFn, _ := function.LookupAggregate("count")
	agg := operator.NewAggregate(src, nil, nil,
		[]operator.AggregateSpec{{Name: "n", Fn: countFn, Arg: ident("v")}})

	result := drainAll(t, agg)
	require.NotNil(t, result)
	require.Equal(t, 1, result.NumRows())
	nCol, _ := result.ColumnByName("n")
	assert.Equal(t, int64(2), nCol.Values[0].AsInt())
}

func TestTakeLimitsRows(t *testing.T) {
	src := inlineGV([2]any{"a", 1}, [2]any{"b", 2}, [2]any{"c", 3})
	take := operator.NewTake(src, 2)
	result := drainAll(t, take)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.NumRows())
}

func TestDistinctSuppressesDuplicates(t *testing.T) {
	src := inlineGV([2]any{"a", 1}, [2]any{"a", 1}, [2]any{"b", 2})
	d := operator.NewDistinct(src)
	result := drainAll(t, d)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.NumRows())
}

func TestJoinInnerDropsUnmatched(t *testing.T) {
	leftCols := []vm.ColumnSpec{col("id", types.KindInt8), col("name", types.KindUtf8)}
	left := operator.NewInlineData(leftCols, [][]types.Value{
		{types.Int(types.KindInt8, 1), types.Utf8("alice")},
		{types.Int(types.KindInt8, 2), types.Utf8("bob")},
	})
	rightCols := []vm.ColumnSpec{col("id", types.KindInt8), col("amount", types.KindInt8)}
	right := operator.NewInlineData(rightCols, [][]types.Value{
		{types.Int(types.KindInt8, 1), types.Int(types.KindInt8, 100)},
	})
	j := operator.NewJoin(left, right, ident("id"), ident("id"), operator.JoinInnerKind)
	result := drainAll(t, j)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.NumRows())
}

func TestJoinLeftKeepsUnmatched(t *testing.T) {
	leftCols := []vm.ColumnSpec{col("id", types.KindInt8), col("name", types.KindUtf8)}
	left := operator.NewInlineData(leftCols, [][]types.Value{
		{types.Int(types.KindInt8, 1), types.Utf8("alice")},
		{types.Int(types.KindInt8, 2), types.Utf8("bob")},
	})
	rightCols := []vm.ColumnSpec{col("id", types.KindInt8), col("amount", types.KindInt8)}
	right := operator.NewInlineData(rightCols, [][]types.Value{
		{types.Int(types.KindInt8, 1), types.Int(types.KindInt8, 100)},
	})
	j := operator.NewJoin(left, right, ident("id"), ident("id"), operator.JoinLeftKind)
	result := drainAll(t, j)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.NumRows())
	amountCol, _ := result.ColumnByName("amount")
	assert.True(t, amountCol.Valid[0])
	assert.False(t, amountCol.Valid[1])
}

func TestSortOrdersDescending(t *testing.T) {
	src := inlineGV([2]any{"a", 1}, [2]any{"b", 3}, [2]any{"c", 2})
	s := operator.NewSort(src, []operator.SortKey{{Expr: ident("v"), Desc: true}})
	result := drainAll(t, s)
	require.NotNil(t, result)
	vCol, _ := result.ColumnByName("v")
	assert.Equal(t, []int64{3, 2, 1}, []int64{vCol.Values[0].AsInt(), vCol.Values[1].AsInt(), vCol.Values[2].AsInt()})
}
