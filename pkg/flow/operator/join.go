package operator

import (
	"context"
	"fmt"

	"github.com/reifydb/reifydb/pkg/flow"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// Side identifies which join input a FlowChange originates from. A flow
// Join node has two upstream edges; the caller driving the DAG passes the
// upstream node a change came from to ProcessFrom, which maps it to a Side.
type Side uint8

const (
	SideLeft Side = iota
	SideRight
)

// JoinInner is the eager inner hash-join operator: two keyspaces
// (`left_hash -> [row]`, `right_hash -> [row]`), as described by the design notes
// 4.7, "Operator state". A row only produces joined output once both
// sides have a matching key; removing one side retracts every joined row
// it had produced.
type JoinInner struct {
	LeftKey, RightKey vm.CompiledExpr
	leftRows          map[string][]*flow.Row
	rightRows         map[string][]*flow.Row

	// LeftNode and RightNode name the two upstream nodes this join
	// reads from. A join has two incoming edges where every other
	// operator has one, so the DAG walker uses these to tell which
	// side a FlowChange arrived on (see ProcessFrom).
	LeftNode, RightNode flow.NodeID
}

func NewJoinInner(leftKey, rightKey *rql.Expr, leftNode, rightNode flow.NodeID) (*JoinInner, error) {
	lk, err := vm.CompileExpr(leftKey)
	if err != nil {
		return nil, err
	}
	rk, err := vm.CompileExpr(rightKey)
	if err != nil {
		return nil, err
	}
	return &JoinInner{
		LeftKey: lk, RightKey: rk,
		leftRows: map[string][]*flow.Row{}, rightRows: map[string][]*flow.Row{},
		LeftNode: leftNode, RightNode: rightNode,
	}, nil
}

// ProcessFrom implements the DAG walker's two-edge dispatch: it maps the
// upstream node a change arrived from to a Side and delegates to
// ProcessSide. Any origin other than LeftNode/RightNode is treated as the
// right side, matching a join wired with only one known edge recorded.
func (j *JoinInner) ProcessFrom(ctx context.Context, origin flow.NodeID, change *flow.FlowChange) (*flow.FlowChange, error) {
	side := SideRight
	if origin == j.LeftNode {
		side = SideLeft
	}
	return j.ProcessSide(ctx, side, change)
}

// Process satisfies Operator so JoinInner can be stored alongside other
// operators; DAG walkers check EdgeAware first and always call
// ProcessFrom for a join, so this is never reached.
func (j *JoinInner) Process(ctx context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return j.ProcessFrom(ctx, j.RightNode, change)
}

func (j *JoinInner) keyOf(row *flow.Row, expr vm.CompiledExpr) string {
	batch := rowToBatch(row)
	col, _ := expr(batch)
	return joinKeyString(col.Values[0], col.Valid[0])
}

// ProcessSide handles one diff coming from the given side, emitting any
// resulting join-output diffs.
func (j *JoinInner) ProcessSide(_ context.Context, side Side, change *flow.FlowChange) (*flow.FlowChange, error) {
	out := &flow.FlowChange{Origin: change.Origin, Version: change.Version}
	for _, d := range change.Diffs {
		diffs := j.applyOne(side, d)
		out.Diffs = append(out.Diffs, diffs...)
	}
	if len(out.Diffs) == 0 {
		return nil, nil
	}
	return out, nil
}

func (j *JoinInner) applyOne(side Side, d flow.FlowDiff) []flow.FlowDiff {
	var result []flow.FlowDiff
	switch d.Kind {
	case flow.DiffInsert:
		result = append(result, j.insertSide(side, d.Post)...)
	case flow.DiffRemove:
		result = append(result, j.removeSide(side, d.Pre)...)
	case flow.DiffUpdate:
		result = append(result, j.removeSide(side, d.Pre)...)
		result = append(result, j.insertSide(side, d.Post)...)
	}
	return result
}

func (j *JoinInner) insertSide(side Side, row *flow.Row) []flow.FlowDiff {
	own, other := j.sideMaps(side)
	key := j.sideKey(side, row)
	own[key] = append(own[key], row)
	var diffs []flow.FlowDiff
	for _, match := range other[key] {
		diffs = append(diffs, flow.Insert(joinRows(side, row, match)))
	}
	return diffs
}

func (j *JoinInner) removeSide(side Side, row *flow.Row) []flow.FlowDiff {
	own, other := j.sideMaps(side)
	key := j.sideKey(side, row)
	own[key] = removeRow(own[key], row)
	var diffs []flow.FlowDiff
	for _, match := range other[key] {
		diffs = append(diffs, flow.Remove(joinRows(side, row, match)))
	}
	return diffs
}

func (j *JoinInner) sideMaps(side Side) (own, other map[string][]*flow.Row) {
	if side == SideLeft {
		return j.leftRows, j.rightRows
	}
	return j.rightRows, j.leftRows
}

func (j *JoinInner) sideKey(side Side, row *flow.Row) string {
	if side == SideLeft {
		return j.keyOf(row, j.LeftKey)
	}
	return j.keyOf(row, j.RightKey)
}

func joinRows(side Side, row, match *flow.Row) *flow.Row {
	left, right := row, match
	if side == SideRight {
		left, right = match, row
	}
	columns := append(append([]string{}, left.Columns...), right.Columns...)
	values := append(append([]types.Value{}, left.Values...), right.Values...)
	return flow.NewRow(columns, values)
}

func removeRow(rows []*flow.Row, target *flow.Row) []*flow.Row {
	for i, r := range rows {
		if sameRow(r, target) {
			return append(rows[:i], rows[i+1:]...)
		}
	}
	return rows
}

func sameRow(a, b *flow.Row) bool {
	if len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if a.Values[i].AsString() != b.Values[i].AsString() || a.Values[i].AsInt() != b.Values[i].AsInt() {
			return false
		}
	}
	return true
}

func joinKeyString(v types.Value, valid bool) string {
	if !valid {
		return "\x00U"
	}
	return fmt.Sprintf("%s:%s|%d|%d", v.Kind, v.AsString(), v.AsInt(), v.AsUint())
}

// LeftEagerJoin implements the design notes's named left-join retraction
// strategy: while a left row has no matching right row it is emitted
// unmatched (right side undefined); when the first matching right row
// arrives, the unmatched row is retracted and the proper joined row is
// emitted; when the last matching right row leaves, the unmatched row is
// re-emitted.
type LeftEagerJoin struct {
	inner        *JoinInner
	unmatchedOut map[string]bool // left row keys currently emitted unmatched
	rightCols    []string
}

func NewLeftEagerJoin(leftKey, rightKey *rql.Expr, leftNode, rightNode flow.NodeID, rightCols []string) (*LeftEagerJoin, error) {
	inner, err := NewJoinInner(leftKey, rightKey, leftNode, rightNode)
	if err != nil {
		return nil, err
	}
	return &LeftEagerJoin{inner: inner, unmatchedOut: map[string]bool{}, rightCols: rightCols}, nil
}

// ProcessFrom mirrors JoinInner.ProcessFrom for the eager left-join
// strategy.
func (l *LeftEagerJoin) ProcessFrom(ctx context.Context, origin flow.NodeID, change *flow.FlowChange) (*flow.FlowChange, error) {
	side := SideRight
	if origin == l.inner.LeftNode {
		side = SideLeft
	}
	return l.ProcessSide(ctx, side, change)
}

// Process satisfies Operator so LeftEagerJoin can be stored alongside
// other operators; DAG walkers check EdgeAware first and always call
// ProcessFrom for a join, so this is never reached.
func (l *LeftEagerJoin) Process(ctx context.Context, change *flow.FlowChange) (*flow.FlowChange, error) {
	return l.ProcessFrom(ctx, l.inner.RightNode, change)
}

func (l *LeftEagerJoin) ProcessSide(_ context.Context, side Side, change *flow.FlowChange) (*flow.FlowChange, error) {
	out := &flow.FlowChange{Origin: change.Origin, Version: change.Version}
	for _, d := range change.Diffs {
		out.Diffs = append(out.Diffs, l.applyOne(side, d)...)
	}
	if len(out.Diffs) == 0 {
		return nil, nil
	}
	return out, nil
}

func (l *LeftEagerJoin) applyOne(side Side, d flow.FlowDiff) []flow.FlowDiff {
	switch d.Kind {
	case flow.DiffInsert:
		return l.insert(side, d.Post)
	case flow.DiffRemove:
		return l.remove(side, d.Pre)
	case flow.DiffUpdate:
		var out []flow.FlowDiff
		out = append(out, l.remove(side, d.Pre)...)
		out = append(out, l.insert(side, d.Post)...)
		return out
	default:
		return nil
	}
}

func (l *LeftEagerJoin) insert(side Side, row *flow.Row) []flow.FlowDiff {
	if side == SideRight {
		key := l.inner.keyOf(row, l.inner.RightKey)
		joined := l.inner.insertSide(SideRight, row)
		var diffs []flow.FlowDiff
		for _, leftRow := range l.inner.leftRows[key] {
			lk := rowKeySignature(leftRow)
			if l.unmatchedOut[lk] {
				diffs = append(diffs, flow.Remove(l.unmatchedRow(leftRow)))
				delete(l.unmatchedOut, lk)
			}
		}
		diffs = append(diffs, joined...)
		return diffs
	}

	joined := l.inner.insertSide(SideLeft, row)
	if len(joined) == 0 {
		lk := rowKeySignature(row)
		l.unmatchedOut[lk] = true
		return []flow.FlowDiff{flow.Insert(l.unmatchedRow(row))}
	}
	return joined
}

func (l *LeftEagerJoin) remove(side Side, row *flow.Row) []flow.FlowDiff {
	if side == SideLeft {
		lk := rowKeySignature(row)
		if l.unmatchedOut[lk] {
			delete(l.unmatchedOut, lk)
			l.inner.removeSide(SideLeft, row)
			return []flow.FlowDiff{flow.Remove(l.unmatchedRow(row))}
		}
		return l.inner.removeSide(SideLeft, row)
	}

	key := l.inner.keyOf(row, l.inner.RightKey)
	matchingLeft := append([]*flow.Row{}, l.inner.leftRows[key]...)
	diffs := l.inner.removeSide(SideRight, row)
	for _, leftRow := range matchingLeft {
		if l.countMatches(key) == 0 {
			lk := rowKeySignature(leftRow)
			l.unmatchedOut[lk] = true
			diffs = append(diffs, flow.Insert(l.unmatchedRow(leftRow)))
		}
	}
	return diffs
}

func (l *LeftEagerJoin) countMatches(rightKey string) int {
	return len(l.inner.rightRows[rightKey])
}

func (l *LeftEagerJoin) unmatchedRow(left *flow.Row) *flow.Row {
	columns := append(append([]string{}, left.Columns...), l.rightCols...)
	values := append([]types.Value{}, left.Values...)
	for range l.rightCols {
		values = append(values, types.Undefined(types.KindAny))
	}
	return flow.NewRow(columns, values)
}

func rowKeySignature(row *flow.Row) string {
	s := ""
	for i, v := range row.Values {
		s += fmt.Sprintf("%s=%s;", row.Columns[i], v.AsString()+fmt.Sprint(v.AsInt()))
	}
	return s
}
