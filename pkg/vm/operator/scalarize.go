package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Scalarize collapses its child to a single row, erroring if the child
// produced more than one (the design notes, "Operator catalogue": "Scalarize
// (collapse to a single row)"). Used where a query result is bound to a
// scalar subexpression.
type Scalarize struct {
	Child   vm.Operator
	emitted bool
}

func NewScalarize(child vm.Operator) *Scalarize { return &Scalarize{Child: child} }

func (s *Scalarize) Initialize(ctx context.Context) error { return s.Child.Initialize(ctx) }

func (s *Scalarize) Next(ctx context.Context) (*vm.Batch, error) {
	if s.emitted {
		return nil, nil
	}
	var whole *vm.Batch
	for {
		batch, err := s.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}
		whole = vm.Concat(whole, batch)
		if whole.NumRows() > 1 {
			return nil, diagnostic.New(diagnostic.MapSyntax, "scalar subquery produced more than one row")
		}
	}
	s.emitted = true
	return whole, nil
}
