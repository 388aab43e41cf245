package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// RowFunc transforms one row's values into zero or more output rows - the
// "operator-per-row" escape hatch for functions that don't fit the
// columnar expression model (e.g. table-valued functions, UDF pipelines).
type RowFunc func(values []types.Value) ([][]types.Value, error)

// Apply runs RowFunc once per input row, flattening the results back into
// a single output batch (the design notes, "Operator catalogue": "Apply
// (operator-per-row)").
type Apply struct {
	Child   vm.Operator
	Output  []vm.ColumnSpec
	Fn      RowFunc
}

func NewApply(child vm.Operator, output []vm.ColumnSpec, fn RowFunc) *Apply {
	return &Apply{Child: child, Output: output, Fn: fn}
}

func (a *Apply) Initialize(ctx context.Context) error { return a.Child.Initialize(ctx) }

func (a *Apply) Next(ctx context.Context) (*vm.Batch, error) {
	for {
		batch, err := a.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, nil
		}
		out := newEmptyBatch(a.Output)
		for row := 0; row < batch.NumRows(); row++ {
			values := make([]types.Value, len(batch.Columns))
			for i, c := range batch.Columns {
				values[i] = c.Values[row]
			}
			rows, err := a.Fn(values)
			if err != nil {
				return nil, err
			}
			rowNumber := uint64(0)
			if batch.RowNumbers != nil {
				rowNumber = batch.RowNumbers[row]
			}
			for _, r := range rows {
				appendRow(out, r, rowNumber)
			}
		}
		if out.NumRows() == 0 {
			continue
		}
		return out, nil
	}
}
