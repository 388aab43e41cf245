package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// DictionaryLookup resolves one dictionary-encoded id to its decoded value,
// implemented by pkg/engine over an in-memory id -> value map it fills as
// dictionary values are inserted; that map is not stored in the KV store.
// This package never imports pkg/catalog directly (the design notes' RowReader
// import-cycle rationale applies identically here).
type DictionaryLookup func(ctx context.Context, id types.Value) (types.Value, error)

// Decode substitutes dictionary-encoded integer ids for their decoded
// values, one column at a time (§4.1, "Dictionary decoding"). It sits
// directly above the scan that produced the raw ids and below Filter, so
// that any predicate referencing a dictionary column always compares real
// values rather than ids (§4.6, "Filter algorithm") - the latest point this
// Volcano rendition can defer decoding to while still satisfying that
// ordering requirement for every possible downstream filter.
type Decode struct {
	Child     vm.Operator
	Columns   map[int]DictionaryLookup
	ValueKind map[int]types.Kind
}

func NewDecode(child vm.Operator, columns map[int]DictionaryLookup, valueKind map[int]types.Kind) vm.Operator {
	if len(columns) == 0 {
		return child
	}
	return &Decode{Child: child, Columns: columns, ValueKind: valueKind}
}

func (d *Decode) Initialize(ctx context.Context) error { return d.Child.Initialize(ctx) }

func (d *Decode) Next(ctx context.Context) (*vm.Batch, error) {
	batch, err := d.Child.Next(ctx)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, nil
	}
	for idx, lookup := range d.Columns {
		if idx >= len(batch.Columns) {
			continue
		}
		col := batch.Columns[idx]
		col.Kind = d.ValueKind[idx]
		for i, v := range col.Values {
			if !col.Valid[i] {
				continue
			}
			decoded, err := lookup(ctx, v)
			if err != nil {
				return nil, err
			}
			col.Values[i] = decoded
			col.Valid[i] = decoded.Defined
		}
	}
	return batch, nil
}

func (d *Decode) Close() error {
	if c, ok := d.Child.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
