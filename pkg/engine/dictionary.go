package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/events"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm"
	"github.com/reifydb/reifydb/pkg/vm/operator"
)

// wrapDictionaryDecode inserts an operator.Decode over scan for every
// dictionary-encoded column of primitiveID, so that every consumer above
// the scan - including a pushed-down Filter - sees decoded values rather
// than raw dictionary ids (§4.1, §4.6).
func (e *Engine) wrapDictionaryDecode(primitiveID uint64, scan vm.Operator) vm.Operator {
	e.mu.RLock()
	dictCols := e.dictColumns[primitiveID]
	e.mu.RUnlock()
	if len(dictCols) == 0 {
		return scan
	}

	columns := make(map[int]operator.DictionaryLookup, len(dictCols))
	valueKind := make(map[int]types.Kind, len(dictCols))
	for idx, info := range dictCols {
		dictionaryID := info.DictionaryID
		columns[idx] = func(ctx context.Context, id types.Value) (types.Value, error) {
			raw := idAsUint64(id)
			v, ok := e.dictDecode(dictionaryID, raw)
			if !ok {
				return types.Value{}, diagnostic.Newf(diagnostic.InternalError, "dictionary %d has no entry for id %d", dictionaryID, raw)
			}
			return v, nil
		}
		valueKind[idx] = info.ValueType
	}
	return operator.NewDecode(scan, columns, valueKind)
}

// createDictionary is the Go rendition of CREATE DICTIONARY ns.name {id:
// idType, value: valueType}: a versioned catalog entity backing a
// content-addressable id<->value map a Column can point through instead of
// storing its decoded value inline (SPEC_FULL.md D.1, "Dictionary columns
// are a first-class encoding, not just a planner trick").
func (e *Engine) createDictionary(t *txn.Txn, namespace, name, idTypeName, valueTypeName string) (uint64, error) {
	nsID, err := e.resolveNamespace(t, namespace)
	if err != nil {
		return 0, err
	}
	idType, ok := types.KindFromName(idTypeName)
	if !ok {
		return 0, diagnostic.Newf(diagnostic.CastIncompatible, "unknown dictionary id type %q", idTypeName)
	}
	valueType, ok := types.KindFromName(valueTypeName)
	if !ok {
		return 0, diagnostic.Newf(diagnostic.CastIncompatible, "unknown dictionary value type %q", valueTypeName)
	}

	version := t.BeginVersion() + 1
	id := e.cat.NextID()
	e.cat.SetDictionary(id, version, &catalog.Dictionary{
		ID: id, NamespaceID: nsID, Name: name, IDType: idType, ValueType: valueType,
	}, nil)

	e.mu.Lock()
	fullName := name
	if namespace != "" {
		fullName = namespace + "." + name
	}
	e.dictionariesByName[name] = id
	e.dictionariesByName[fullName] = id
	e.mu.Unlock()

	e.dictMu.Lock()
	e.dictValues[id] = map[string]uint64{}
	e.dictReverse[id] = map[uint64]types.Value{}
	e.dictSeq[id] = &atomic.Uint64{}
	e.dictMu.Unlock()

	e.events.PublishEntity(events.EventDictionaryCreated, id, uint64(version), fullName)
	return id, nil
}

// resolveDictionary looks up a dictionary by its bare or qualified name, as
// named by a `dictionary(name)` column type.
func (e *Engine) resolveDictionary(name string) (uint64, *catalog.Dictionary, bool) {
	e.mu.RLock()
	id, ok := e.dictionariesByName[name]
	e.mu.RUnlock()
	if !ok {
		return 0, nil, false
	}
	def, ok := e.cat.FindDictionary(id, e.currentVersionUnsafe())
	if !ok {
		return 0, nil, false
	}
	return id, def, true
}

// dictKey canonicalizes a decoded value into the string dictValues indexes
// on: dictionary lookups are keyed by IDType/ValueType pair per entity, not
// by Go type, so this dispatches on Kind the same way pkg/vm/cast does.
func dictKey(v types.Value) string {
	switch {
	case !v.Defined:
		return "\x00undefined"
	case v.Kind == types.KindUtf8 || v.Kind == types.KindBlob || v.Kind == types.KindDecimal:
		return "s:" + v.AsString()
	case v.Kind.IsInteger():
		if v.Kind == types.KindUint1 || v.Kind == types.KindUint2 || v.Kind == types.KindUint4 ||
			v.Kind == types.KindUint8 || v.Kind == types.KindUint16 || v.Kind == types.KindUint {
			return fmt.Sprintf("u:%d", v.AsUint())
		}
		return fmt.Sprintf("i:%d", v.AsInt())
	case v.Kind == types.KindBool:
		return fmt.Sprintf("b:%v", v.AsBool())
	case v.Kind == types.KindFloat4 || v.Kind == types.KindFloat8:
		return fmt.Sprintf("f:%v", v.AsFloat())
	default:
		return fmt.Sprintf("?:%v", v)
	}
}

// dictEncode resolves value to its dictionary id, allocating a fresh one on
// first insert of that value (an append-only id space, matching §4.1's
// "dictionary decoding" - ids are never reused once assigned).
func (e *Engine) dictEncode(dictionaryID uint64, idType types.Kind, value types.Value) (types.Value, error) {
	key := dictKey(value)

	e.dictMu.Lock()
	defer e.dictMu.Unlock()

	values, ok := e.dictValues[dictionaryID]
	if !ok {
		return types.Value{}, diagnostic.Newf(diagnostic.CatalogDictionaryMissing, "unknown dictionary %d", dictionaryID)
	}
	if id, ok := values[key]; ok {
		return idValue(idType, id), nil
	}

	seq := e.dictSeq[dictionaryID]
	id := seq.Add(1)
	values[key] = id
	e.dictReverse[dictionaryID][id] = value
	return idValue(idType, id), nil
}

// dictDecode resolves a dictionary-encoded id back to its decoded value,
// exactly the reverse of dictEncode's id allocation. Used by
// pkg/vm/operator.Decode at the latest point before a row reaches a query
// operator (§4.1, "Dictionary decoding").
func (e *Engine) dictDecode(dictionaryID uint64, id uint64) (types.Value, bool) {
	e.dictMu.Lock()
	defer e.dictMu.Unlock()
	v, ok := e.dictReverse[dictionaryID][id]
	return v, ok
}

func idValue(idType types.Kind, id uint64) types.Value {
	if idType.IsInteger() && !isUnsignedKind(idType) {
		return types.Int(idType, int64(id))
	}
	return types.Uint(idType, id)
}

// idAsUint64 reads a dictionary id Value back out regardless of whether it
// was stamped as a signed or unsigned Kind (idValue picks signed kinds for
// everything but the Uint family).
func idAsUint64(v types.Value) uint64 {
	if isUnsignedKind(v.Kind) {
		return v.AsUint()
	}
	return uint64(v.AsInt())
}

func isUnsignedKind(k types.Kind) bool {
	switch k {
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16, types.KindUint:
		return true
	default:
		return false
	}
}
