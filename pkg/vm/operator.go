package vm

import (
	"context"

	"github.com/reifydb/reifydb/pkg/types"
)

// Operator is one node of the Volcano pipeline (the design notes, "Model").
// Next returns (nil, nil) once the operator is exhausted; any non-nil error
// aborts the whole query (the design notes, "Failure semantics").
type Operator interface {
	Initialize(ctx context.Context) error
	Next(ctx context.Context) (*Batch, error)
}

// Phase is the design notes' "explicit Phase enum" rendition of what would
// otherwise be a coroutine: operators with more than one internal stage
// (HashJoin's build-then-probe) hold one
// of these instead of a suspended stack frame, so Next is always a plain
// resumable function call (design notes, "Coroutine control flow").
type Phase uint8

const (
	PhaseBuild Phase = iota
	PhaseProbe
	PhaseDone
)

// ColumnSpec names and types one output column a RowReader produces, in
// order.
type ColumnSpec struct {
	Name string
	Kind types.Kind
}

// RowReader is implemented by pkg/engine to hand TableScan/ViewScan a
// stream of decoded rows without vm depending on pkg/store or pkg/txn
// directly (avoiding an import cycle, since pkg/engine wires everything
// together).
type RowReader interface {
	Columns() []ColumnSpec
	// Next returns the next row's column values in Columns() order, its
	// row number, and false once exhausted.
	Next(ctx context.Context) (values []types.Value, rowNumber uint64, ok bool, err error)
	Close() error
}
