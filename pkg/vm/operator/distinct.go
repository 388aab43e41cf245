package operator

import (
	"context"
	"fmt"

	"github.com/reifydb/reifydb/pkg/vm"
)

// Distinct suppresses duplicate rows across the whole stream, keyed on the
// full row value (the design notes, "Operator catalogue"). State is an
// in-memory seen-set; acceptable since rows are bounded by a single
// query's working set in this engine's scale.
type Distinct struct {
	Child vm.Operator
	seen  map[string]struct{}
}

func NewDistinct(child vm.Operator) *Distinct { return &Distinct{Child: child} }

func (d *Distinct) Initialize(ctx context.Context) error {
	d.seen = make(map[string]struct{})
	return d.Child.Initialize(ctx)
}

func (d *Distinct) Next(ctx context.Context) (*vm.Batch, error) {
	for {
		batch, err := d.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, nil
		}
		mask := make([]bool, batch.NumRows())
		any := false
		for row := 0; row < batch.NumRows(); row++ {
			key := rowKey(batch, row)
			if _, dup := d.seen[key]; dup {
				continue
			}
			d.seen[key] = struct{}{}
			mask[row] = true
			any = true
		}
		if !any {
			continue
		}
		return batch.Select(mask), nil
	}
}

func rowKey(batch *vm.Batch, row int) string {
	s := ""
	for _, col := range batch.Columns {
		if !col.Valid[row] {
			s += "\x00U\x1f"
			continue
		}
		s += fmt.Sprintf("%s:%v\x1f", col.Kind, renderKey(col.Values[row]))
	}
	return s
}
