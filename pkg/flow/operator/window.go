package operator

import (
	"context"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Window keeps `(group_key, window_id) -> pane_state` (the design notes,
// "Operator state"). Panes close on watermark advance: WatermarkAdvance
// reports every pane whose window has fully elapsed as of the given
// watermark, removing them from live state and emitting their final
// value.
type Window struct {
	GroupBy    []vm.CompiledExpr
	GroupNames []string
	TimeExpr   vm.CompiledExpr
	Size       int64
	Specs      []AggregateSpec

	panes map[paneKey]*aggState
}

type paneKey struct {
	groupKey string
	windowID int64
}

func NewWindow(groupBy []*rql.Expr, groupNames []string, timeExpr *rql.Expr, size int64, specs []AggregateSpec) (*Window, error) {
	w := &Window{GroupNames: groupNames, Size: size, Specs: specs, panes: map[paneKey]*aggState{}}
	for _, e := range groupBy {
		compiled, err := vm.CompileExpr(e)
		if err != nil {
			return nil, err
		}
		w.GroupBy = append(w.GroupBy, compiled)
	}
	compiled, err := vm.CompileExpr(timeExpr)
	if err != nil {
		return nil, err
	}
	w.TimeExpr = compiled
	return w, nil
}

func (w *Window) Process(_ context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	for _, d := range change.Diffs {
		if d.Kind == flow.DiffRemove {
			continue // panes only close on watermark advance, not on row removal
		}
		row := d.Post
		if row == nil {
			row = d.Pre
		}
		w.accumulate(row)
	}
	return nil, nil
}

func (w *Window) accumulate(row *flow.Row) {
	batch := rowToBatch(row)
	keyValues := make([]types.Value, len(w.GroupBy))
	for i, g := range w.GroupBy {
		col, _ := g(batch)
		keyValues[i] = col.Values[0]
	}
	timeCol, _ := w.TimeExpr(batch)
	if !timeCol.Valid[0] {
		return
	}
	windowID := windowIDFor(timeCol.Values[0], w.Size)
	pk := paneKey{groupKey: groupKeyString(keyValues), windowID: windowID}
	g, ok := w.panes[pk]
	if !ok {
		g = &aggState{keyValues: keyValues, accs: make([]retractable, len(w.Specs))}
		for i, spec := range w.Specs {
			g.accs[i] = newRetractable(spec.Fn)
		}
		w.panes[pk] = g
	}
	for i, spec := range w.Specs {
		col, _ := spec.Arg(batch)
		if col.Valid[0] {
			g.accs[i].Add(col.Values[0])
		}
	}
}

func windowIDFor(t types.Value, size int64) int64 {
	var nanos int64
	switch t.Kind {
	case types.KindDateTime, types.KindDate:
		nanos = t.AsTime().UnixNano()
	case types.KindTime, types.KindDuration:
		nanos = int64(t.AsDuration())
	default:
		nanos = t.AsInt()
	}
	if size <= 0 {
		return 0
	}
	return (nanos / size) * size
}

// WatermarkAdvance closes every pane whose window has fully elapsed as of
// watermark (window_id + Size <= watermark), emitting one Insert diff per
// closed pane and removing it from live state.
func (w *Window) WatermarkAdvance(watermark int64) *flow.FlowChange {
	out := &flow.FlowChange{}
	for pk, g := range w.panes {
		if pk.windowID+w.Size > watermark {
			continue
		}
		names := append([]string{}, w.GroupNames...)
		values := append([]types.Value{}, g.keyValues...)
		for i, spec := range w.Specs {
			names = append(names, spec.Name)
			values = append(values, g.accs[i].Result())
		}
		out.Diffs = append(out.Diffs, flow.Insert(flow.NewRow(names, values)))
		delete(w.panes, pk)
	}
	if len(out.Diffs) == 0 {
		return nil
	}
	return out
}
