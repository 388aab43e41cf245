package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Filter is stateless (the design notes, "Operator state": "Filter/Map:
// stateless"). It re-evaluates its predicate on every Pre/Post row it
// sees, reusing the VM's compiled-expression evaluator over a synthetic
// one-row Batch rather than duplicating expression evaluation.
type Filter struct {
	Predicate vm.CompiledExpr
}

func NewFilter(predicate *rql.Expr) (*Filter, error) {
	compiled, err := vm.CompileExpr(predicate)
	if err != nil {
		return nil, err
	}
	return &Filter{Predicate: compiled}, nil
}

func (f *Filter) matches(row *flow.Row) (bool, error) {
	if row == nil {
		return false, nil
	}
	batch := rowToBatch(row)
	col, err := f.Predicate(batch)
	if err != nil {
		return false, err
	}
	return col.Valid[0] && col.Values[0].AsBool(), nil
}

func (f *Filter) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	out := &flow.FlowChange{Origin: change.Origin, Version: change.Version}
	for _, d := range change.Diffs {
		transformed, err := f.transform(d)
		if err != nil {
			return nil, err
		}
		if transformed != nil {
			out.Diffs = append(out.Diffs, *transformed)
		}
	}
	if len(out.Diffs) == 0 {
		return nil, nil
	}
	return out, nil
}

// transform applies the predicate to one diff. An Update where only one
// side passes degrades to a plain Insert or Remove, since the row is
// entering or leaving the filtered view from the downstream operator's
// perspective.
func (f *Filter) transform(d flow.FlowDiff) (*flow.FlowDiff, error) {
	switch d.Kind {
	case flow.DiffInsert:
		ok, err := f.matches(d.Post)
		if err != nil || !ok {
			return nil, err
		}
		out := flow.Insert(d.Post)
		return &out, nil
	case flow.DiffRemove:
		ok, err := f.matches(d.Pre)
		if err != nil || !ok {
			return nil, err
		}
		out := flow.Remove(d.Pre)
		return &out, nil
	case flow.DiffUpdate:
		preOK, err := f.matches(d.Pre)
		if err != nil {
			return nil, err
		}
		postOK, err := f.matches(d.Post)
		if err != nil {
			return nil, err
		}
		switch {
		case preOK && postOK:
			out := flow.Update(d.Pre, d.Post)
			return &out, nil
		case preOK && !postOK:
			out := flow.Remove(d.Pre)
			return &out, nil
		case !preOK && postOK:
			out := flow.Insert(d.Post)
			return &out, nil
		default:
			return nil, nil
		}
	default:
		return nil, nil
	}
}

func rowToBatch(row *flow.Row) *vm.Batch {
	cols := make([]*vm.Column, len(row.Columns))
	for i, name := range row.Columns {
		v := row.Values[i]
		cols[i] = &vm.Column{Name: name, Kind: v.Kind, Values: []types.Value{v}, Valid: []bool{v.Defined}}
	}
	return &vm.Batch{Columns: cols}
}
