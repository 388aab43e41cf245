package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Projection pairs a compiled expression with its output column name.
type Projection struct {
	Expr vm.CompiledExpr
	Name string
}

// Map replaces the incoming batch with exactly the given projections
// (the design notes, "Operator catalogue": "Map (projection)").
type Map struct {
	Child       vm.Operator
	Projections []Projection
}

func NewMap(child vm.Operator, projections []Projection) *Map {
	return &Map{Child: child, Projections: projections}
}

func (m *Map) Initialize(ctx context.Context) error { return m.Child.Initialize(ctx) }

func (m *Map) Next(ctx context.Context) (*vm.Batch, error) {
	batch, err := m.Child.Next(ctx)
	if err != nil || batch == nil {
		return batch, err
	}
	return projectBatch(batch, m.Projections)
}

func projectBatch(batch *vm.Batch, projections []Projection) (*vm.Batch, error) {
	out := &vm.Batch{Columns: make([]*vm.Column, len(projections)), RowNumbers: batch.RowNumbers}
	for i, p := range projections {
		col, err := p.Expr(batch)
		if err != nil {
			return nil, err
		}
		named := *col
		if p.Name != "" {
			named.Name = p.Name
		}
		out.Columns[i] = &named
	}
	return out, nil
}

// Extend appends new columns while keeping every existing one (the design notes
// 4.6, "Operator catalogue": "Extend (add columns keeping existing)").
type Extend struct {
	Child       vm.Operator
	Projections []Projection
}

func NewExtend(child vm.Operator, projections []Projection) *Extend {
	return &Extend{Child: child, Projections: projections}
}

func (e *Extend) Initialize(ctx context.Context) error { return e.Child.Initialize(ctx) }

func (e *Extend) Next(ctx context.Context) (*vm.Batch, error) {
	batch, err := e.Child.Next(ctx)
	if err != nil || batch == nil {
		return batch, err
	}
	out := &vm.Batch{Columns: append([]*vm.Column{}, batch.Columns...), RowNumbers: batch.RowNumbers}
	for _, p := range e.Projections {
		col, err := p.Expr(batch)
		if err != nil {
			return nil, err
		}
		named := *col
		if p.Name != "" {
			named.Name = p.Name
		}
		out.Columns = append(out.Columns, &named)
	}
	return out, nil
}

// Patch updates rows addressed by row number, setting only the named
// columns and leaving the rest untouched (the design notes, "Operator
// catalogue": "Patch (update by primary key)"). The patched batch is
// handed to the caller (typically a Command txn's commit path) to apply
// as deltas; Patch itself only computes the new column values.
type Patch struct {
	Child       vm.Operator
	Projections map[string]vm.CompiledExpr
}

func NewPatch(child vm.Operator, projections map[string]vm.CompiledExpr) *Patch {
	return &Patch{Child: child, Projections: projections}
}

func (p *Patch) Initialize(ctx context.Context) error { return p.Child.Initialize(ctx) }

func (p *Patch) Next(ctx context.Context) (*vm.Batch, error) {
	batch, err := p.Child.Next(ctx)
	if err != nil || batch == nil {
		return batch, err
	}
	out := &vm.Batch{RowNumbers: batch.RowNumbers}
	for _, col := range batch.Columns {
		if compiled, ok := p.Projections[col.Name]; ok {
			newCol, err := compiled(batch)
			if err != nil {
				return nil, err
			}
			named := *newCol
			named.Name = col.Name
			out.Columns = append(out.Columns, &named)
			continue
		}
		out.Columns = append(out.Columns, col)
	}
	if len(p.Projections) > 0 {
		for name := range p.Projections {
			if _, ok := batch.ColumnByName(name); !ok {
				return nil, diagnostic.Newf(diagnostic.MapSyntax, "patch references unknown column %q", name)
			}
		}
	}
	return out, nil
}
