package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// InlineData yields a single fixed Batch, built ahead of time from literal
// rows (the design notes, "Operator catalogue"). Used for statement bodies that
// don't source from a table or view, e.g. `FROM {{a: 1}, {a: 2}}`.
type InlineData struct {
	Rows    [][]types.Value
	ColSpec []vm.ColumnSpec

	emitted bool
}

func NewInlineData(cols []vm.ColumnSpec, rows [][]types.Value) *InlineData {
	return &InlineData{ColSpec: cols, Rows: rows}
}

func (d *InlineData) Initialize(ctx context.Context) error { return nil }

func (d *InlineData) Next(ctx context.Context) (*vm.Batch, error) {
	if d.emitted || len(d.Rows) == 0 {
		return nil, nil
	}
	d.emitted = true
	batch := newEmptyBatch(d.ColSpec)
	for i, row := range d.Rows {
		appendRow(batch, row, uint64(i))
	}
	return batch, nil
}

// Generator produces a sequence of integer rows [Start, Start+Count), one
// column named Name - the RQL equivalent of a range-generating table
// function, used by tests and by Flow backfill seeding.
type Generator struct {
	Name  string
	Start int64
	Count int64

	next int64
	done bool
}

func NewGenerator(name string, start, count int64) *Generator {
	return &Generator{Name: name, Start: start, Count: count, next: start}
}

func (g *Generator) Initialize(ctx context.Context) error { return nil }

func (g *Generator) Next(ctx context.Context) (*vm.Batch, error) {
	if g.done {
		return nil, nil
	}
	end := g.Start + g.Count
	col := &vm.Column{Name: g.Name, Kind: types.KindInt8}
	rowNumbers := make([]uint64, 0, vm.DefaultBatchSize)
	for n := 0; n < vm.DefaultBatchSize && g.next < end; n++ {
		col.Values = append(col.Values, types.Int(types.KindInt8, g.next))
		col.Valid = append(col.Valid, true)
		rowNumbers = append(rowNumbers, uint64(g.next))
		g.next++
	}
	if g.next >= end {
		g.done = true
	}
	if len(col.Values) == 0 {
		return nil, nil
	}
	return &vm.Batch{Columns: []*vm.Column{col}, RowNumbers: rowNumbers}, nil
}
