package operator

import (
	"bytes"
	"context"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
)

// LookupMode selects which of RowLookup's three shapes to run (the design notes
// 4.6, "Operator catalogue": "RowLookup (point/list/range)").
type LookupMode uint8

const (
	LookupPoint LookupMode = iota
	LookupList
	LookupRange
)

// RowLookup fetches rows by primary key rather than scanning: Point reads
// one key, List reads a fixed set of keys, Range reads every key between
// Low and High inclusive. The underlying RowReader is expected to already
// be narrowed to the relevant key space; RowLookup itself only applies the
// List/Range filtering where the reader can't do it directly.
type RowLookup struct {
	Source vm.RowReader
	Mode   LookupMode
	Keys   [][]byte // LookupList
	Low    []byte   // LookupRange
	High   []byte   // LookupRange

	keySet map[string]struct{}
	cols   []vm.ColumnSpec
	done   bool
}

func NewRowLookup(source vm.RowReader, mode LookupMode) *RowLookup {
	return &RowLookup{Source: source, Mode: mode}
}

func (l *RowLookup) Initialize(ctx context.Context) error {
	l.cols = l.Source.Columns()
	if l.Mode == LookupList {
		l.keySet = make(map[string]struct{}, len(l.Keys))
		for _, k := range l.Keys {
			l.keySet[string(k)] = struct{}{}
		}
	}
	return ensureRowReaderColumns(l.cols)
}

func (l *RowLookup) Next(ctx context.Context) (*vm.Batch, error) {
	if l.done {
		return nil, nil
	}
	batch := newEmptyBatch(l.cols)
	n := 0
	for n < vm.DefaultBatchSize {
		values, rowNumber, ok, err := l.Source.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			l.done = true
			break
		}
		if !l.matches(values) {
			continue
		}
		appendRow(batch, values, rowNumber)
		n++
		if l.Mode == LookupPoint {
			l.done = true
			break
		}
	}
	if n == 0 {
		return nil, nil
	}
	return batch, nil
}

func (l *RowLookup) matches(values []types.Value) bool {
	switch l.Mode {
	case LookupList:
		if len(values) == 0 {
			return true
		}
		_, ok := l.keySet[string(values[0].AsBytes())]
		return ok
	case LookupRange:
		if len(values) == 0 {
			return true
		}
		key := values[0].AsBytes()
		if l.Low != nil && bytes.Compare(key, l.Low) < 0 {
			return false
		}
		if l.High != nil && bytes.Compare(key, l.High) > 0 {
			return false
		}
		return true
	default:
		return true
	}
}

func (l *RowLookup) Close() error { return l.Source.Close() }
