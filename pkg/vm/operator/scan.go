package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// TableScan pulls every row a RowReader produces, batching up to
// vm.DefaultBatchSize rows per Next call (the design notes, "Model").
type TableScan struct {
	Source vm.RowReader

	cols []vm.ColumnSpec
	done bool
}

func NewTableScan(source vm.RowReader) *TableScan { return &TableScan{Source: source} }

func (s *TableScan) Initialize(ctx context.Context) error {
	s.cols = s.Source.Columns()
	return ensureRowReaderColumns(s.cols)
}

func (s *TableScan) Next(ctx context.Context) (*vm.Batch, error) {
	if s.done {
		return nil, nil
	}
	batch := newEmptyBatch(s.cols)
	n := 0
	for n < vm.DefaultBatchSize {
		values, rowNumber, ok, err := s.Source.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.done = true
			break
		}
		appendRow(batch, values, rowNumber)
		n++
	}
	if n == 0 {
		return nil, nil
	}
	return batch, nil
}

func (s *TableScan) Close() error {
	if s.Source == nil {
		return nil
	}
	return s.Source.Close()
}

// ViewScan reads from a materialized view's stored rows. It shares
// TableScan's pull loop: views are backed by the same row storage as
// tables, only the source namespace differs (the design notes, "Views").
type ViewScan struct {
	*TableScan
}

func NewViewScan(source vm.RowReader) *ViewScan {
	return &ViewScan{TableScan: NewTableScan(source)}
}

// IndexScan reads rows via an index-ordered RowReader, narrowed to the
// given key bounds. The RowReader itself is responsible for iterating the
// index in key order and decoding matching rows; IndexScan only batches
// the results (the design notes, "Indexes").
type IndexScan struct {
	*TableScan
	Low, High []byte
}

func NewIndexScan(source vm.RowReader, low, high []byte) *IndexScan {
	return &IndexScan{TableScan: NewTableScan(source), Low: low, High: high}
}

func newEmptyBatch(cols []vm.ColumnSpec) *vm.Batch {
	columns := make([]*vm.Column, len(cols))
	for i, c := range cols {
		columns[i] = &vm.Column{Name: c.Name, Kind: c.Kind}
	}
	return &vm.Batch{Columns: columns}
}

func appendRow(batch *vm.Batch, values []types.Value, rowNumber uint64) {
	for i, v := range values {
		batch.Columns[i].Values = append(batch.Columns[i].Values, v)
		batch.Columns[i].Valid = append(batch.Columns[i].Valid, v.Defined)
	}
	batch.RowNumbers = append(batch.RowNumbers, rowNumber)
}

// ensureRowReaderColumns is a defensive check used by operators that rely
// on a RowReader advertising at least one column.
func ensureRowReaderColumns(cols []vm.ColumnSpec) error {
	if len(cols) == 0 {
		return diagnostic.New(diagnostic.MapSyntax, "row reader exposes no columns")
	}
	return nil
}
