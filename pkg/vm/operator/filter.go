package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/vm"
)

// Filter compiles its predicate once into a closure over Columns and
// applies it per batch (the design notes, "Filter algorithm"): evaluate the
// predicate into a boolean Column, AND it into a row mask, select the
// batch by that mask.
type Filter struct {
	Child     vm.Operator
	Predicate vm.CompiledExpr
}

func NewFilter(child vm.Operator, predicate vm.CompiledExpr) *Filter {
	return &Filter{Child: child, Predicate: predicate}
}

func (f *Filter) Initialize(ctx context.Context) error { return f.Child.Initialize(ctx) }

func (f *Filter) Next(ctx context.Context) (*vm.Batch, error) {
	for {
		batch, err := f.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, nil
		}
		predCol, err := f.Predicate(batch)
		if err != nil {
			return nil, err
		}
		mask := make([]bool, predCol.Len())
		any := false
		for i, v := range predCol.Values {
			keep := predCol.Valid[i] && v.AsBool()
			mask[i] = keep
			any = any || keep
		}
		if !any {
			continue
		}
		return batch.Select(mask), nil
	}
}
