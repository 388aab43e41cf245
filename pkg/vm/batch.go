package vm

import "github.com/reifydb/reifydb/pkg/types"

// DefaultBatchSize is the config knob's default (the design notes, "Model"):
// operators yield after at most this many rows per Next call.
const DefaultBatchSize = 1024

// Column is a typed container of values plus a validity bitvec - the
// column-oriented counterpart of a single Field slot in pkg/encoding's row
// format.
type Column struct {
	Name   string
	Kind   types.Kind
	Values []types.Value
	Valid  []bool
}

func NewColumn(name string, kind types.Kind, n int) *Column {
	return &Column{Name: name, Kind: kind, Values: make([]types.Value, n), Valid: make([]bool, n)}
}

func (c *Column) Len() int { return len(c.Values) }

func (c *Column) Set(i int, v types.Value) {
	c.Values[i] = v
	c.Valid[i] = v.Defined
}

// Select returns a new Column containing only the rows where mask[i] is
// true, preserving order.
func (c *Column) Select(mask []bool) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	for i, keep := range mask {
		if keep {
			out.Values = append(out.Values, c.Values[i])
			out.Valid = append(out.Valid, c.Valid[i])
		}
	}
	return out
}

// Batch is a set of named Columns sharing one row count, plus an optional
// row-number column carried alongside for operators (Patch, RowLookup) that
// need to address rows by position (the design notes, "Model").
type Batch struct {
	Columns    []*Column
	RowNumbers []uint64
}

func NewBatch(columns ...*Column) *Batch { return &Batch{Columns: columns} }

func (b *Batch) NumRows() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return b.Columns[0].Len()
}

func (b *Batch) ColumnByName(name string) (*Column, bool) {
	for _, c := range b.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Select returns a new Batch containing only the rows where mask[i] is
// true, applied uniformly across every column and the row-number column -
// the "AND the mask into the batch" step of the design notes's filter algorithm.
func (b *Batch) Select(mask []bool) *Batch {
	out := &Batch{Columns: make([]*Column, len(b.Columns))}
	for i, c := range b.Columns {
		out.Columns[i] = c.Select(mask)
	}
	if b.RowNumbers != nil {
		for i, keep := range mask {
			if keep {
				out.RowNumbers = append(out.RowNumbers, b.RowNumbers[i])
			}
		}
	}
	return out
}

// Concat appends two batches with identical column sets into one. Used by
// operators (Aggregate's ordered scan, Sort) that must materialize more
// than one incoming batch.
func Concat(a, b *Batch) *Batch {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	out := &Batch{Columns: make([]*Column, len(a.Columns))}
	for i, ca := range a.Columns {
		cb := b.Columns[i]
		out.Columns[i] = &Column{
			Name:   ca.Name,
			Kind:   ca.Kind,
			Values: append(append([]types.Value{}, ca.Values...), cb.Values...),
			Valid:  append(append([]bool{}, ca.Valid...), cb.Valid...),
		}
	}
	out.RowNumbers = append(append([]uint64{}, a.RowNumbers...), b.RowNumbers...)
	return out
}
