package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/vm"
)

// Take caps the stream at N rows total, truncating the final batch as
// needed and then returning nil forever (the design notes, "Operator
// catalogue"). It deliberately pulls no more from Child than necessary.
type Take struct {
	Child     vm.Operator
	N         int64
	remaining int64
}

func NewTake(child vm.Operator, n int64) *Take {
	return &Take{Child: child, N: n, remaining: n}
}

func (t *Take) Initialize(ctx context.Context) error { return t.Child.Initialize(ctx) }

func (t *Take) Next(ctx context.Context) (*vm.Batch, error) {
	if t.remaining <= 0 {
		return nil, nil
	}
	batch, err := t.Child.Next(ctx)
	if err != nil || batch == nil {
		return batch, err
	}
	n := batch.NumRows()
	if int64(n) <= t.remaining {
		t.remaining -= int64(n)
		return batch, nil
	}
	mask := make([]bool, n)
	for i := int64(0); i < t.remaining; i++ {
		mask[i] = true
	}
	t.remaining = 0
	return batch.Select(mask), nil
}
