package flow

import "github.com/reifydb/reifydb/pkg/types"

// Row is a typed row flowing through a Flow DAG: named columns in a fixed
// order, shared by every diff in a FlowChange.
type Row struct {
	Columns []string
	Values  []types.Value
}

func NewRow(columns []string, values []types.Value) *Row {
	return &Row{Columns: columns, Values: values}
}

func (r *Row) Get(name string) (types.Value, bool) {
	for i, c := range r.Columns {
		if c == name {
			return r.Values[i], true
		}
	}
	return types.Value{}, false
}

// DiffKind is the closed set of row-level changes a FlowDiff carries
// (the design notes, "Model").
type DiffKind uint8

const (
	DiffInsert DiffKind = iota
	DiffUpdate
	DiffRemove
)

// FlowDiff is one row-level change. Insert carries Post only, Remove
// carries Pre only, Update carries both.
type FlowDiff struct {
	Kind DiffKind
	Pre  *Row
	Post *Row
}

func Insert(post *Row) FlowDiff          { return FlowDiff{Kind: DiffInsert, Post: post} }
func Remove(pre *Row) FlowDiff           { return FlowDiff{Kind: DiffRemove, Pre: pre} }
func Update(pre, post *Row) FlowDiff     { return FlowDiff{Kind: DiffUpdate, Pre: pre, Post: post} }

// FlowChange is the unit of propagation through a Flow DAG: one batch of
// diffs, all originating from the same committed version of the same
// source primitive (the design notes, "Model").
type FlowChange struct {
	Origin  NodeID
	Version uint64
	Diffs   []FlowDiff
}
