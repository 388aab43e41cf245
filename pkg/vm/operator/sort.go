package operator

import (
	"context"
	"sort"

	"github.com/reifydb/reifydb/pkg/vm"
)

// SortKey is one ORDER BY term: a compiled expression plus direction.
type SortKey struct {
	Expr vm.CompiledExpr
	Desc bool
}

// Sort materializes the whole child stream and emits it once, in the
// requested key order (the design notes, "Operator catalogue": "Sort (external
// if needed; else in-memory)"). This engine only implements the in-memory
// path - external merge-sort spill is left for a future iteration since
// the working sets this engine targets fit in memory.
type Sort struct {
	Child vm.Operator
	Keys  []SortKey

	emitted bool
}

func NewSort(child vm.Operator, keys []SortKey) *Sort { return &Sort{Child: child, Keys: keys} }

func (s *Sort) Initialize(ctx context.Context) error { return s.Child.Initialize(ctx) }

func (s *Sort) Next(ctx context.Context) (*vm.Batch, error) {
	if s.emitted {
		return nil, nil
	}
	s.emitted = true

	var whole *vm.Batch
	for {
		batch, err := s.Child.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}
		whole = vm.Concat(whole, batch)
	}
	if whole == nil || whole.NumRows() == 0 {
		return whole, nil
	}

	keyCols := make([]*vm.Column, len(s.Keys))
	for i, k := range s.Keys {
		col, err := k.Expr(whole)
		if err != nil {
			return nil, err
		}
		keyCols[i] = col
	}

	indices := make([]int, whole.NumRows())
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ia, ib := indices[a], indices[b]
		for i, k := range s.Keys {
			cmp := compareValues(keyCols[i], ia, ib)
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	reordered := &vm.Batch{Columns: make([]*vm.Column, len(whole.Columns))}
	for ci, col := range whole.Columns {
		out := &vm.Column{Name: col.Name, Kind: col.Kind}
		for _, idx := range indices {
			out.Values = append(out.Values, col.Values[idx])
			out.Valid = append(out.Valid, col.Valid[idx])
		}
		reordered.Columns[ci] = out
	}
	if whole.RowNumbers != nil {
		for _, idx := range indices {
			reordered.RowNumbers = append(reordered.RowNumbers, whole.RowNumbers[idx])
		}
	}
	return reordered, nil
}

func compareValues(col *vm.Column, a, b int) int {
	av, bv := col.Valid[a], col.Valid[b]
	if !av && !bv {
		return 0
	}
	if !av {
		return -1
	}
	if !bv {
		return 1
	}
	ra, rb := renderKey(col.Values[a]), renderKey(col.Values[b])
	switch x := ra.(type) {
	case string:
		y := rb.(string)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case int64:
		y := rb.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case uint64:
		y := rb.(uint64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case float64:
		y := rb.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	case bool:
		y := rb.(bool)
		if x == y {
			return 0
		}
		if !x {
			return -1
		}
		return 1
	default:
		return 0
	}
}
