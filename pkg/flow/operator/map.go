package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Map is stateless (the design notes, "Operator state"), re-projecting each
// Pre/Post row through the same compiled expressions the Query VM's Map
// operator uses.
type Map struct {
	Names       []string
	Projections []vm.CompiledExpr
}

func NewMap(exprs []*rql.Expr) (*Map, error) {
	m := &Map{}
	for _, e := range exprs {
		compiled, err := vm.CompileExpr(e)
		if err != nil {
			return nil, err
		}
		m.Projections = append(m.Projections, compiled)
		m.Names = append(m.Names, vm.ExprOutputName(e))
	}
	return m, nil
}

func (m *Map) project(row *flow.Row) (*flow.Row, error) {
	if row == nil {
		return nil, nil
	}
	batch := rowToBatch(row)
	values := make([]types.Value, len(m.Projections))
	for i, p := range m.Projections {
		col, err := p(batch)
		if err != nil {
			return nil, err
		}
		values[i] = col.Values[0]
	}
	return flow.NewRow(m.Names, values), nil
}

func (m *Map) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	out := &flow.FlowChange{Origin: change.Origin, Version: change.Version}
	for _, d := range change.Diffs {
		pre, err := m.project(d.Pre)
		if err != nil {
			return nil, err
		}
		post, err := m.project(d.Post)
		if err != nil {
			return nil, err
		}
		out.Diffs = append(out.Diffs, flow.FlowDiff{Kind: d.Kind, Pre: pre, Post: post})
	}
	return out, nil
}
