package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/vm"
)

// Merge concatenates rows from multiple children of identical shape in
// order, draining each child fully before moving to the next (the design notes,
// "Operator catalogue"). This mirrors a SQL UNION ALL; Distinct on top
// gives UNION semantics.
type Merge struct {
	Children []vm.Operator
	idx      int
}

func NewMerge(children ...vm.Operator) *Merge { return &Merge{Children: children} }

func (m *Merge) Initialize(ctx context.Context) error {
	for _, c := range m.Children {
		if err := c.Initialize(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Merge) Next(ctx context.Context) (*vm.Batch, error) {
	for m.idx < len(m.Children) {
		batch, err := m.Children[m.idx].Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			m.idx++
			continue
		}
		return batch, nil
	}
	return nil, nil
}
