package engine

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/vm"
	"github.com/reifydb/reifydb/pkg/vm/function"
	"github.com/reifydb/reifydb/pkg/vm/operator"
)

// buildOperator lowers a PhysicalNode into the Volcano pipeline pkg/vm's
// operator catalogue implements, reading through t's snapshot. Only the ten
// PhysicalTag values pkg/rql's planner emits are reachable here
// (RowLookup/InlineData/Generator/Merge/Apply/Scalarize/Window have no
// planner path into a PhysicalNode and are wired elsewhere - DESIGN.md).
func (e *Engine) buildOperator(ctx context.Context, phys *rql.PhysicalNode, t *txn.Txn) (vm.Operator, error) {
	if phys == nil {
		return nil, diagnostic.New(diagnostic.MapSyntax, "empty physical plan")
	}

	switch phys.Tag {
	case rql.PhysicalTableScan:
		return e.buildScan(ctx, phys, t)

	case rql.PhysicalFilter:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		pred, err := vm.CompileExpr(phys.Predicate)
		if err != nil {
			return nil, err
		}
		return operator.NewFilter(child, pred), nil

	case rql.PhysicalMap:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		projs, err := compileProjections(phys.Projections)
		if err != nil {
			return nil, err
		}
		return operator.NewMap(child, projs), nil

	case rql.PhysicalExtend:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		projs, err := compileProjections(phys.Projections)
		if err != nil {
			return nil, err
		}
		return operator.NewExtend(child, projs), nil

	case rql.PhysicalAggregate:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		groupBy := make([]vm.CompiledExpr, len(phys.GroupBy))
		groupNames := make([]string, len(phys.GroupBy))
		for i, g := range phys.GroupBy {
			c, err := vm.CompileExpr(g)
			if err != nil {
				return nil, err
			}
			groupBy[i] = c
			groupNames[i] = vm.ExprOutputName(g)
		}
		specs, err := compileAggregates(phys.Aggregates)
		if err != nil {
			return nil, err
		}
		return operator.NewAggregate(child, groupBy, groupNames, specs), nil

	case rql.PhysicalHashJoinInner, rql.PhysicalHashJoinLeft:
		left, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		right, err := e.buildOperator(ctx, phys.Right, t)
		if err != nil {
			return nil, err
		}
		leftKey, rightKey, err := splitJoinKeys(phys.JoinOn)
		if err != nil {
			return nil, err
		}
		kind := operator.JoinInnerKind
		if phys.Tag == rql.PhysicalHashJoinLeft {
			kind = operator.JoinLeftKind
		}
		return operator.NewJoin(left, right, leftKey, rightKey, kind), nil

	case rql.PhysicalSort:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		keys := make([]operator.SortKey, len(phys.SortKeys))
		for i, k := range phys.SortKeys {
			c, err := vm.CompileExpr(k.Expr)
			if err != nil {
				return nil, err
			}
			keys[i] = operator.SortKey{Expr: c, Desc: k.Desc}
		}
		return operator.NewSort(child, keys), nil

	case rql.PhysicalTake:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		return operator.NewTake(child, int64(phys.Limit)), nil

	case rql.PhysicalDistinct:
		child, err := e.buildOperator(ctx, phys.Input, t)
		if err != nil {
			return nil, err
		}
		return operator.NewDistinct(child), nil

	default:
		return nil, diagnostic.Newf(diagnostic.MapSyntax, "unsupported physical operator %d", phys.Tag)
	}
}

// buildScan resolves a FROM source name against the flat table/view
// namespace and opens a row reader through t's snapshot, pushing down
// phys.Predicate if the planner folded one into this scan.
func (e *Engine) buildScan(ctx context.Context, phys *rql.PhysicalNode, t *txn.Txn) (vm.Operator, error) {
	id, ok := e.resolvePrimitive(phys.Source)
	if !ok {
		return nil, diagnostic.Newf(diagnostic.CatalogTableNotFound, "unknown table or view %q", phys.Source)
	}
	reader, err := e.newRowReader(ctx, id, t)
	if err != nil {
		return nil, err
	}
	scan := vm.Operator(operator.NewTableScan(reader))
	scan = e.wrapDictionaryDecode(id, scan)
	if phys.Pushdown && phys.Predicate != nil {
		pred, err := vm.CompileExpr(phys.Predicate)
		if err != nil {
			return nil, err
		}
		scan = operator.NewFilter(scan, pred)
	}
	return scan, nil
}

func compileProjections(exprs []*rql.Expr) ([]operator.Projection, error) {
	out := make([]operator.Projection, len(exprs))
	for i, ex := range exprs {
		c, err := vm.CompileExpr(ex)
		if err != nil {
			return nil, err
		}
		out[i] = operator.Projection{Expr: c, Name: vm.ExprOutputName(ex)}
	}
	return out, nil
}

// compileAggregates compiles each AGGREGATE stage expression, which the
// parser produces as a (possibly aliased) call, e.g. sum(amount) or
// sum(amount) as total.
func compileAggregates(exprs []*rql.Expr) ([]operator.AggregateSpec, error) {
	out := make([]operator.AggregateSpec, len(exprs))
	for i, ex := range exprs {
		name := vm.ExprOutputName(ex)
		call := ex
		if call.Tag == rql.ExprAlias {
			call = call.Inner
		}
		if call.Tag != rql.ExprCall || len(call.Args) != 1 {
			return nil, diagnostic.New(diagnostic.MapSyntax, "aggregate expressions must be a single-argument function call")
		}
		agg, ok := function.LookupAggregate(call.Func)
		if !ok {
			return nil, diagnostic.Newf(diagnostic.MapSyntax, "unknown aggregate function %q", call.Func)
		}
		arg, err := vm.CompileExpr(call.Args[0])
		if err != nil {
			return nil, err
		}
		out[i] = operator.AggregateSpec{Name: name, Fn: agg, Arg: arg}
	}
	return out, nil
}

// splitJoinKeys expects JoinOn to be an equality predicate, left-hand side
// resolving against the left scan's columns and right-hand side against the
// right scan's - the only join-condition shape pkg/rql's grammar produces
// (a JOIN stage's "on a.x == b.y").
func splitJoinKeys(on *rql.Expr) (vm.CompiledExpr, vm.CompiledExpr, error) {
	if on == nil || on.Tag != rql.ExprBinary || on.BinOp != rql.OpEq {
		return nil, nil, diagnostic.New(diagnostic.MapSyntax, "join condition must be an equality predicate")
	}
	left, err := vm.CompileExpr(on.Left)
	if err != nil {
		return nil, nil, err
	}
	right, err := vm.CompileExpr(on.Right)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
