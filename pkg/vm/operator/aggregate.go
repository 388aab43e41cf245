package operator

import (
	"context"
	"fmt"
	"sort"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
	"github.com/reifydb/reifydb/pkg/vm/function"
)

// AggregateSpec names one output aggregate column: Fn is applied to the
// values produced by Arg, bound to Name in the result.
type AggregateSpec struct {
	Name string
	Fn   function.Aggregate
	Arg  vm.CompiledExpr
}

// Aggregate is the two-phase hash aggregation described by the design notes,
// "Aggregate": partial per-batch aggregation into a shared hash map keyed
// by the grouping columns; on exhaustion, an ordered scan of the map in
// lexicographic grouping-key order, for determinism. An empty GroupBy
// still produces exactly one row - the global aggregate.
type Aggregate struct {
	Child       vm.Operator
	GroupBy     []vm.CompiledExpr
	GroupNames  []string
	Aggregates  []AggregateSpec

	groups   map[string]*aggGroup
	order    []string
	emitted  bool
}

type aggGroup struct {
	keyValues []types.Value
	states    []function.State
}

func NewAggregate(child vm.Operator, groupBy []vm.CompiledExpr, groupNames []string, aggregates []AggregateSpec) *Aggregate {
	return &Aggregate{Child: child, GroupBy: groupBy, GroupNames: groupNames, Aggregates: aggregates}
}

func (a *Aggregate) Initialize(ctx context.Context) error {
	a.groups = make(map[string]*aggGroup)
	return a.Child.Initialize(ctx)
}

func (a *Aggregate) Next(ctx context.Context) (*vm.Batch, error) {
	if a.emitted {
		return nil, nil
	}
	for {
		batch, err := a.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}
		if err := a.accumulate(batch); err != nil {
			return nil, err
		}
	}
	a.emitted = true
	return a.buildResult(), nil
}

func (a *Aggregate) accumulate(batch *vm.Batch) error {
	n := batch.NumRows()
	keyCols := make([]*vm.Column, len(a.GroupBy))
	for i, g := range a.GroupBy {
		col, err := g(batch)
		if err != nil {
			return err
		}
		keyCols[i] = col
	}
	argCols := make([]*vm.Column, len(a.Aggregates))
	for i, spec := range a.Aggregates {
		col, err := spec.Arg(batch)
		if err != nil {
			return err
		}
		argCols[i] = col
	}

	for row := 0; row < n; row++ {
		keyValues := make([]types.Value, len(keyCols))
		for i, c := range keyCols {
			keyValues[i] = c.Values[row]
		}
		key := groupKeyString(keyValues)
		g, ok := a.groups[key]
		if !ok {
			states := make([]function.State, len(a.Aggregates))
			for i, spec := range a.Aggregates {
				states[i] = spec.Fn.New()
			}
			g = &aggGroup{keyValues: keyValues, states: states}
			a.groups[key] = g
			a.order = append(a.order, key)
		}
		for i := range a.Aggregates {
			if argCols[i].Valid[row] {
				g.states[i].Accumulate(argCols[i].Values[row])
			}
		}
	}
	return nil
}

func (a *Aggregate) buildResult() *vm.Batch {
	if len(a.order) == 0 && len(a.GroupBy) == 0 {
		// Global aggregate over zero input rows still emits one row
		// (the design notes, example 4's boundary case).
		return a.emitGlobalEmpty()
	}
	sort.Strings(a.order)

	out := &vm.Batch{}
	for _, name := range a.GroupNames {
		out.Columns = append(out.Columns, &vm.Column{Name: name, Kind: types.KindAny, Values: nil, Valid: nil})
	}
	for _, spec := range a.Aggregates {
		out.Columns = append(out.Columns, &vm.Column{Name: spec.Name})
	}

	for _, key := range a.order {
		g := a.groups[key]
		for i := range a.GroupNames {
			out.Columns[i].Values = append(out.Columns[i].Values, g.keyValues[i])
			out.Columns[i].Valid = append(out.Columns[i].Valid, g.keyValues[i].Defined)
		}
		for i := range a.Aggregates {
			result := g.states[i].Result()
			col := out.Columns[len(a.GroupNames)+i]
			col.Kind = result.Kind
			col.Values = append(col.Values, result)
			col.Valid = append(col.Valid, result.Defined)
		}
	}
	return out
}

func (a *Aggregate) emitGlobalEmpty() *vm.Batch {
	out := &vm.Batch{}
	for _, spec := range a.Aggregates {
		state := spec.Fn.New()
		result := state.Result()
		out.Columns = append(out.Columns, &vm.Column{
			Name: spec.Name, Kind: result.Kind,
			Values: []types.Value{result}, Valid: []bool{result.Defined},
		})
	}
	return out
}

// groupKeyString renders a grouping key as a sortable, collision-free
// string so lexicographic sort.Strings gives the deterministic ordering
// the design notes requires.
func groupKeyString(values []types.Value) string {
	s := ""
	for _, v := range values {
		if !v.Defined {
			s += "\x00U\x1f"
			continue
		}
		s += fmt.Sprintf("%s:%v\x1f", v.Kind, renderKey(v))
	}
	return s
}

func renderKey(v types.Value) any {
	switch {
	case v.Kind == types.KindUtf8:
		return v.AsString()
	case v.Kind == types.KindFloat4 || v.Kind == types.KindFloat8:
		return v.AsFloat()
	case v.Kind.IsNumeric() && !isUnsignedKind(v.Kind):
		return v.AsInt()
	case v.Kind.IsNumeric():
		return v.AsUint()
	case v.Kind == types.KindBool:
		return v.AsBool()
	default:
		return v.AsString()
	}
}

func isUnsignedKind(k types.Kind) bool {
	switch k {
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16, types.KindUint:
		return true
	default:
		return false
	}
}
