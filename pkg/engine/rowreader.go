package engine

import (
	"context"

	"github.com/reifydb/reifydb/pkg/encoding"
	"github.com/reifydb/reifydb/pkg/store"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// storeRowReader implements vm.RowReader over one primitive's row range,
// decoded through its cached encoding.Schema. It is the bridge TableScan and
// ViewScan read through, keeping pkg/vm free of any pkg/store or pkg/txn
// import (pkg/vm/operator.go's RowReader doc comment).
type storeRowReader struct {
	schema  *encoding.Schema
	cols    []vm.ColumnSpec
	it      store.Iterator
	closeFn func() error
}

// txnPrefixer is the slice of *txn.Txn newRowReader needs: a prefix scan
// bound to one transaction's snapshot.
type txnPrefixer interface {
	Prefix(ctx context.Context, prefix types.EncodedKey) (store.Iterator, error)
}

// newRowReader opens an iterator over primitiveID's rows, read through t (so
// it observes t's snapshot merged with t's own pending writes - a query that
// inserts and then scans the same table within one transaction sees the row
// it just wrote, per pkg/txn.Txn's read-your-own-writes contract).
func (e *Engine) newRowReader(ctx context.Context, primitiveID uint64, t txnPrefixer) (vm.RowReader, error) {
	schema := e.schemaFor(primitiveID)
	if schema == nil {
		return nil, errUnknownPrimitive(primitiveID)
	}
	it, err := t.Prefix(ctx, types.RowPrefix(primitiveID))
	if err != nil {
		return nil, err
	}
	cols := make([]vm.ColumnSpec, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = vm.ColumnSpec{Name: f.Name, Kind: f.Kind}
	}
	return &storeRowReader{schema: schema, cols: cols, it: it}, nil
}

func (r *storeRowReader) Columns() []vm.ColumnSpec { return r.cols }

func (r *storeRowReader) Next(ctx context.Context) ([]types.Value, uint64, bool, error) {
	if !r.it.Next() {
		if err := r.it.Err(); err != nil {
			return nil, 0, false, err
		}
		return nil, 0, false, nil
	}
	_, rowNumber, ok := types.DecodeRowKey(r.it.Key())
	if !ok {
		return r.Next(ctx)
	}
	row, err := encoding.Decode(r.schema, r.it.Value())
	if err != nil {
		return nil, 0, false, err
	}
	values := make([]types.Value, len(r.schema.Fields))
	for i := range r.schema.Fields {
		values[i] = row.GetValue(i)
	}
	return values, rowNumber, true, nil
}

func (r *storeRowReader) Close() error { return r.it.Close() }
