package operator

import (
	"context"
	"fmt"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// JoinKind picks Inner (drop unmatched), Left (keep unmatched left rows
// with undefined right columns) or Natural (join on identically-named
// columns present on both sides) semantics (the design notes, "Operator
// catalogue").
type JoinKind uint8

const (
	JoinInnerKind JoinKind = iota
	JoinLeftKind
	JoinNaturalKind
)

// Join is a classic build/probe hash join: the right (build) side is
// materialized once into a hash map keyed by its join expression, then the
// left (probe) side streams through, looked up against the map (the design notes
// design notes, "Coroutine control flow" - PhaseBuild then PhaseProbe
// instead of a suspended generator).
type Join struct {
	Left, Right vm.Operator
	LeftKey     vm.CompiledExpr
	RightKey    vm.CompiledExpr
	Kind        JoinKind

	phase   vm.Phase
	buildOf map[string][]*buildRow
	rightCols []*vm.Column
	probeBuf  *vm.Batch
	probeIdx  int
	probeKey  *vm.Column
}

type buildRow struct {
	values []types.Value
}

func NewJoin(left, right vm.Operator, leftKey, rightKey vm.CompiledExpr, kind JoinKind) *Join {
	return &Join{Left: left, Right: right, LeftKey: leftKey, RightKey: rightKey, Kind: kind, phase: vm.PhaseBuild}
}

func (j *Join) Initialize(ctx context.Context) error {
	if err := j.Left.Initialize(ctx); err != nil {
		return err
	}
	return j.Right.Initialize(ctx)
}

func (j *Join) build(ctx context.Context) error {
	j.buildOf = make(map[string][]*buildRow)
	for {
		batch, err := j.Right.Next(ctx)
		if err != nil {
			return err
		}
		if batch == nil {
			break
		}
		keyCol, err := j.RightKey(batch)
		if err != nil {
			return err
		}
		j.rightCols = batch.Columns
		for row := 0; row < batch.NumRows(); row++ {
			values := make([]types.Value, len(batch.Columns))
			for ci, col := range batch.Columns {
				values[ci] = col.Values[row]
			}
			key := joinKeyString(keyCol, row)
			j.buildOf[key] = append(j.buildOf[key], &buildRow{values: values})
		}
	}
	j.phase = vm.PhaseProbe
	return nil
}

func (j *Join) Next(ctx context.Context) (*vm.Batch, error) {
	if j.phase == vm.PhaseBuild {
		if err := j.build(ctx); err != nil {
			return nil, err
		}
	}
	if j.phase == vm.PhaseDone {
		return nil, nil
	}

	for {
		if j.probeBuf == nil || j.probeIdx >= j.probeBuf.NumRows() {
			batch, err := j.Left.Next(ctx)
			if err != nil {
				return nil, err
			}
			if batch == nil {
				j.phase = vm.PhaseDone
				return nil, nil
			}
			keyCol, err := j.LeftKey(batch)
			if err != nil {
				return nil, err
			}
			j.probeBuf, j.probeIdx, j.probeKey = batch, 0, keyCol
		}
		out := j.probeOneBatch()
		if out != nil {
			return out, nil
		}
	}
}

// probeOneBatch drains the current probe batch into joined output rows,
// expanding each left row by every matching right row (or, for Left joins,
// one undefined-right row if nothing matched).
func (j *Join) probeOneBatch() *vm.Batch {
	leftCols := j.probeBuf.Columns
	out := &vm.Batch{Columns: make([]*vm.Column, len(leftCols)+len(j.rightCols))}
	for i, c := range leftCols {
		out.Columns[i] = &vm.Column{Name: c.Name, Kind: c.Kind}
	}
	for i, c := range j.rightCols {
		out.Columns[len(leftCols)+i] = &vm.Column{Name: c.Name, Kind: c.Kind}
	}

	any := false
	for ; j.probeIdx < j.probeBuf.NumRows(); j.probeIdx++ {
		key := joinKeyString(j.probeKey, j.probeIdx)
		matches := j.buildOf[key]
		if len(matches) == 0 {
			if j.Kind == JoinLeftKind {
				j.emitRow(out, leftCols, j.probeIdx, nil)
				any = true
			}
			continue
		}
		for _, m := range matches {
			j.emitRow(out, leftCols, j.probeIdx, m.values)
			any = true
		}
	}
	if !any {
		return nil
	}
	return out
}

func (j *Join) emitRow(out *vm.Batch, leftCols []*vm.Column, leftRow int, rightValues []types.Value) {
	for i, c := range leftCols {
		out.Columns[i].Values = append(out.Columns[i].Values, c.Values[leftRow])
		out.Columns[i].Valid = append(out.Columns[i].Valid, c.Valid[leftRow])
	}
	for i := range j.rightCols {
		if rightValues == nil {
			out.Columns[len(leftCols)+i].Values = append(out.Columns[len(leftCols)+i].Values, types.Undefined(j.rightCols[i].Kind))
			out.Columns[len(leftCols)+i].Valid = append(out.Columns[len(leftCols)+i].Valid, false)
			continue
		}
		out.Columns[len(leftCols)+i].Values = append(out.Columns[len(leftCols)+i].Values, rightValues[i])
		out.Columns[len(leftCols)+i].Valid = append(out.Columns[len(leftCols)+i].Valid, rightValues[i].Defined)
	}
}

func joinKeyString(col *vm.Column, row int) string {
	if !col.Valid[row] {
		return "\x00U"
	}
	return fmt.Sprintf("%s:%v", col.Kind, renderKey(col.Values[row]))
}

// NewNaturalJoin builds a Join keyed on the single column name shared by
// both sides - the common case for JoinNatural (the design notes, "Operator
// catalogue"). Multi-column natural joins are not supported; callers with
// more than one shared column name should compile an explicit ON
// expression instead.
func NewNaturalJoin(left, right vm.Operator, sharedColumn string) *Join {
	key := func(b *vm.Batch) (*vm.Column, error) {
		col, ok := b.ColumnByName(sharedColumn)
		if !ok {
			return nil, fmt.Errorf("natural join: missing shared column %q", sharedColumn)
		}
		return col, nil
	}
	return NewJoin(left, right, key, key, JoinNaturalKind)
}
