package function

import "github.com/reifydb/reifydb/pkg/types"

// Aggregate is a pluggable associative accumulator (the design notes,
// "Aggregate functions are pluggable (sum, min, max, count, avg,
// user-defined) and must satisfy associativity for the partial-merge
// path"). New starts a fresh per-group accumulator; Merge folds
// another partial accumulator of the same kind into this one (the
// "partial-merge path"); Result reads the current value out.
type Aggregate struct {
	Name string
	New  func() State
}

// State accumulates one group's partial aggregate. A State must be safe to
// Merge with another State produced by the same Aggregate, in any order
// (associativity), since partial per-batch aggregation merges across
// batches on exhaustion (the design notes, "Aggregate").
type State interface {
	Accumulate(v types.Value)
	Merge(other State)
	Result() types.Value
}

var aggregates = map[string]Aggregate{}

func registerAggregate(a Aggregate) { aggregates[a.Name] = a }

func LookupAggregate(name string) (Aggregate, bool) {
	a, ok := aggregates[name]
	return a, ok
}

func init() {
	registerAggregate(Aggregate{Name: "sum", New: func() State { return &sumState{} }})
	registerAggregate(Aggregate{Name: "count", New: func() State { return &countState{} }})
	registerAggregate(Aggregate{Name: "min", New: func() State { return &minState{} }})
	registerAggregate(Aggregate{Name: "max", New: func() State { return &maxState{} }})
	registerAggregate(Aggregate{Name: "avg", New: func() State { return &avgState{} }})
}

func numeric(v types.Value) float64 {
	switch v.Kind {
	case types.KindFloat4, types.KindFloat8:
		return v.AsFloat()
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16:
		return float64(v.AsUint())
	default:
		return float64(v.AsInt())
	}
}

type sumState struct {
	sum    float64
	kind   types.Kind
	seeded bool
}

func (s *sumState) Accumulate(v types.Value) {
	if !s.seeded {
		s.kind = v.Kind
		s.seeded = true
	}
	s.sum += numeric(v)
}
func (s *sumState) Merge(other State) {
	o := other.(*sumState)
	s.sum += o.sum
	if !s.seeded {
		s.kind, s.seeded = o.kind, o.seeded
	}
}
func (s *sumState) Result() types.Value {
	if s.kind == types.KindFloat4 || s.kind == types.KindFloat8 {
		return types.Float(types.KindFloat8, s.sum)
	}
	return types.Int(types.KindInt8, int64(s.sum))
}

type countState struct{ n int64 }

func (s *countState) Accumulate(v types.Value) { s.n++ }
func (s *countState) Merge(other State)        { s.n += other.(*countState).n }
func (s *countState) Result() types.Value      { return types.Int(types.KindInt8, s.n) }

type minState struct {
	val  types.Value
	init bool
}

func (s *minState) Accumulate(v types.Value) {
	if !s.init || numeric(v) < numeric(s.val) {
		s.val, s.init = v, true
	}
}
func (s *minState) Merge(other State) {
	o := other.(*minState)
	if o.init {
		s.Accumulate(o.val)
	}
}
func (s *minState) Result() types.Value { return s.val }

type maxState struct {
	val  types.Value
	init bool
}

func (s *maxState) Accumulate(v types.Value) {
	if !s.init || numeric(v) > numeric(s.val) {
		s.val, s.init = v, true
	}
}
func (s *maxState) Merge(other State) {
	o := other.(*maxState)
	if o.init {
		s.Accumulate(o.val)
	}
}
func (s *maxState) Result() types.Value { return s.val }

type avgState struct {
	sum float64
	n   int64
}

func (s *avgState) Accumulate(v types.Value) { s.sum += numeric(v); s.n++ }
func (s *avgState) Merge(other State) {
	o := other.(*avgState)
	s.sum += o.sum
	s.n += o.n
}
func (s *avgState) Result() types.Value {
	if s.n == 0 {
		return types.Float(types.KindFloat8, 0)
	}
	return types.Float(types.KindFloat8, s.sum/float64(s.n))
}
