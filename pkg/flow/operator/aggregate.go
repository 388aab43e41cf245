package operator

import (
	"context"
	"fmt"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// AggregateSpec names one output column of a flow Aggregate node: Fn
// selects the retractable accumulator kind, Arg extracts the value to
// accumulate from an incoming row.
type AggregateSpec struct {
	Name string
	Fn   string
	Arg  vm.CompiledExpr
}

// Aggregate keeps `group_key -> partial_aggregate` in a dedicated
// in-memory keyspace (the design notes, "Operator state"): Insert accumulates,
// Remove undoes, Update subtracts pre and adds post. Unlike the Query VM's
// one-shot Aggregate, this is retraction-aware - every accumulator here
// supports both Add and Remove.
type Aggregate struct {
	GroupBy    []vm.CompiledExpr
	GroupNames []string
	Specs      []AggregateSpec

	groups map[string]*aggState
}

type aggState struct {
	keyValues []types.Value
	accs      []retractable
}

func NewAggregate(groupBy []*rql.Expr, groupNames []string, specs []AggregateSpec) (*Aggregate, error) {
	a := &Aggregate{GroupNames: groupNames, Specs: specs, groups: make(map[string]*aggState)}
	for _, e := range groupBy {
		compiled, err := vm.CompileExpr(e)
		if err != nil {
			return nil, err
		}
		a.GroupBy = append(a.GroupBy, compiled)
	}
	return a, nil
}

func (a *Aggregate) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	out := &flow.FlowChange{Origin: change.Origin, Version: change.Version}
	touched := map[string]bool{}

	for _, d := range change.Diffs {
		switch d.Kind {
		case flow.DiffInsert:
			key, g := a.groupFor(d.Post)
			a.apply(g, d.Post, true)
			touched[key] = true
		case flow.DiffRemove:
			key, g := a.groupFor(d.Pre)
			a.apply(g, d.Pre, false)
			touched[key] = true
		case flow.DiffUpdate:
			preKey, preGroup := a.groupFor(d.Pre)
			postKey, postGroup := a.groupFor(d.Post)
			a.apply(preGroup, d.Pre, false)
			a.apply(postGroup, d.Post, true)
			touched[preKey] = true
			touched[postKey] = true
		}
	}

	for key := range touched {
		g, ok := a.groups[key]
		if !ok {
			continue
		}
		row := a.renderRow(g)
		out.Diffs = append(out.Diffs, flow.Insert(row))
	}
	return out, nil
}

func (a *Aggregate) groupFor(row *flow.Row) (string, *aggState) {
	batch := rowToBatch(row)
	keyValues := make([]types.Value, len(a.GroupBy))
	for i, g := range a.GroupBy {
		col, _ := g(batch)
		keyValues[i] = col.Values[0]
	}
	key := groupKeyString(keyValues)
	g, ok := a.groups[key]
	if !ok {
		g = &aggState{keyValues: keyValues, accs: make([]retractable, len(a.Specs))}
		for i, spec := range a.Specs {
			g.accs[i] = newRetractable(spec.Fn)
		}
		a.groups[key] = g
	}
	return key, g
}

func (a *Aggregate) apply(g *aggState, row *flow.Row, add bool) {
	batch := rowToBatch(row)
	for i, spec := range a.Specs {
		col, _ := spec.Arg(batch)
		if !col.Valid[0] {
			continue
		}
		if add {
			g.accs[i].Add(col.Values[0])
		} else {
			g.accs[i].Remove(col.Values[0])
		}
	}
}

func (a *Aggregate) renderRow(g *aggState) *flow.Row {
	names := append([]string{}, a.GroupNames...)
	values := append([]types.Value{}, g.keyValues...)
	for i, spec := range a.Specs {
		names = append(names, spec.Name)
		values = append(values, g.accs[i].Result())
	}
	return flow.NewRow(names, values)
}

func groupKeyString(values []types.Value) string {
	s := ""
	for _, v := range values {
		if !v.Defined {
			s += "\x00U\x1f"
			continue
		}
		var rendered any
		switch {
		case v.Kind == types.KindUtf8:
			rendered = v.AsString()
		case v.Kind == types.KindFloat4 || v.Kind == types.KindFloat8:
			rendered = v.AsFloat()
		case v.Kind == types.KindBool:
			rendered = v.AsBool()
		case v.Kind.IsNumeric():
			rendered = v.AsInt()
		default:
			rendered = v.AsString()
		}
		s += fmt.Sprintf("%s:%v\x1f", v.Kind, rendered)
	}
	return s
}

// retractable is an Add/Remove accumulator - the "partial_aggregate" state
// kept per group (the design notes, "Operator state").
type retractable interface {
	Add(v types.Value)
	Remove(v types.Value)
	Result() types.Value
}

func newRetractable(fn string) retractable {
	switch fn {
	case "sum":
		return &sumRetractable{}
	case "count":
		return &countRetractable{}
	case "avg":
		return &avgRetractable{}
	case "min":
		return &minMaxRetractable{mode: minMode}
	case "max":
		return &minMaxRetractable{mode: maxMode}
	default:
		return &sumRetractable{}
	}
}

func numericVal(v types.Value) float64 {
	switch v.Kind {
	case types.KindFloat4, types.KindFloat8:
		return v.AsFloat()
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16:
		return float64(v.AsUint())
	default:
		return float64(v.AsInt())
	}
}

type sumRetractable struct {
	sum    float64
	kind   types.Kind
	seeded bool
}

func (s *sumRetractable) Add(v types.Value) {
	if !s.seeded {
		s.kind, s.seeded = v.Kind, true
	}
	s.sum += numericVal(v)
}
func (s *sumRetractable) Remove(v types.Value) { s.sum -= numericVal(v) }
func (s *sumRetractable) Result() types.Value {
	if s.kind == types.KindFloat4 || s.kind == types.KindFloat8 {
		return types.Float(types.KindFloat8, s.sum)
	}
	return types.Int(types.KindInt8, int64(s.sum))
}

type countRetractable struct{ n int64 }

func (c *countRetractable) Add(types.Value)      { c.n++ }
func (c *countRetractable) Remove(types.Value)   { c.n-- }
func (c *countRetractable) Result() types.Value  { return types.Int(types.KindInt8, c.n) }

type avgRetractable struct {
	sum float64
	n   int64
}

func (a *avgRetractable) Add(v types.Value)    { a.sum += numericVal(v); a.n++ }
func (a *avgRetractable) Remove(v types.Value) { a.sum -= numericVal(v); a.n-- }
func (a *avgRetractable) Result() types.Value {
	if a.n <= 0 {
		return types.Float(types.KindFloat8, 0)
	}
	return types.Float(types.KindFloat8, a.sum/float64(a.n))
}

type minMaxMode uint8

const (
	minMode minMaxMode = iota
	maxMode
)

// minMaxRetractable keeps every live value so Remove can recompute the
// extremum - min/max have no constant-space retraction, unlike sum/count/
// avg, so this node pays an O(n) rescan per removal rather than pretending
// otherwise (the design notes, "Operator state").
type minMaxRetractable struct {
	mode   minMaxMode
	values []types.Value
}

func (m *minMaxRetractable) Add(v types.Value) { m.values = append(m.values, v) }

func (m *minMaxRetractable) Remove(v types.Value) {
	target := numericVal(v)
	for i, existing := range m.values {
		if numericVal(existing) == target {
			m.values = append(m.values[:i], m.values[i+1:]...)
			return
		}
	}
}

func (m *minMaxRetractable) Result() types.Value {
	if len(m.values) == 0 {
		return types.Undefined(types.KindFloat8)
	}
	best := m.values[0]
	for _, v := range m.values[1:] {
		if (m.mode == minMode && numericVal(v) < numericVal(best)) ||
			(m.mode == maxMode && numericVal(v) > numericVal(best)) {
			best = v
		}
	}
	return best
}
