package types

import (
	"bytes"
	"encoding/binary"
)

// keyFormatVersion is the first byte of every EncodedKey. It lets the store
// reject or migrate keys written by an incompatible encoder; it has nothing
// to do with CommitVersion.
const keyFormatVersion byte = 1

// KeyKind is the second byte of an EncodedKey: which keyspace a key belongs
// to. Keys are sorted lexicographically, so prefix scans over (kind, id)
// enumerate all rows of one primitive or all operator state of one flow node
// (the design notes, "Persisted state layout").
type KeyKind byte

const (
	KeyKindRow KeyKind = iota + 1
	KeyKindNamespace
	KeyKindTable
	KeyKindView
	KeyKindColumn
	KeyKindDictionary
	KeyKindDictionaryValue
	KeyKindFlow
	KeyKindSequence
	KeyKindRingBuffer
	KeyKindFlowOperatorState
	KeyKindSchema
)

// EncodedKey is an opaque, byte-comparable key. Equality and ordering are by
// bytes; callers never interpret the payload except through the constructors
// and accessors in this file.
type EncodedKey []byte

func newKey(kind KeyKind, parts ...[]byte) EncodedKey {
	size := 2
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, keyFormatVersion, byte(kind))
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return EncodedKey(buf)
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// RowKey builds the key for one row: Row(primitiveID, rowNumber).
func RowKey(primitiveID uint64, rowNumber uint64) EncodedKey {
	return newKey(KeyKindRow, u64be(primitiveID), u64be(rowNumber))
}

// RowPrefix builds the prefix that scans every row of one primitive (table,
// view, or ring buffer).
func RowPrefix(primitiveID uint64) EncodedKey {
	return newKey(KeyKindRow, u64be(primitiveID))
}

func NamespaceKey(id uint64) EncodedKey { return newKey(KeyKindNamespace, u64be(id)) }
func TableKey(id uint64) EncodedKey     { return newKey(KeyKindTable, u64be(id)) }
func ViewKey(id uint64) EncodedKey      { return newKey(KeyKindView, u64be(id)) }
func ColumnKey(id uint64) EncodedKey    { return newKey(KeyKindColumn, u64be(id)) }
func FlowKey(id uint64) EncodedKey      { return newKey(KeyKindFlow, u64be(id)) }
func SequenceKey(id uint64) EncodedKey  { return newKey(KeyKindSequence, u64be(id)) }
func RingBufferKey(id uint64) EncodedKey { return newKey(KeyKindRingBuffer, u64be(id)) }
func SchemaKey(fingerprint [16]byte) EncodedKey {
	return newKey(KeyKindSchema, fingerprint[:])
}

func DictionaryKey(id uint64) EncodedKey { return newKey(KeyKindDictionary, u64be(id)) }

// DictionaryValueKey maps a dictionary's small-integer id to its decoded
// value (the design notes, "Dictionary decoding").
func DictionaryValueKey(dictionaryID uint64, valueID uint64) EncodedKey {
	return newKey(KeyKindDictionaryValue, u64be(dictionaryID), u64be(valueID))
}

// FlowOperatorStateKey addresses one operator's state within one flow:
// FlowOperatorState(flow_id, node_id, sub_key).
func FlowOperatorStateKey(flowID, nodeID uint64, subKey []byte) EncodedKey {
	return newKey(KeyKindFlowOperatorState, u64be(flowID), u64be(nodeID), subKey)
}

// FlowOperatorStatePrefix scans all state of one operator node within a flow.
func FlowOperatorStatePrefix(flowID, nodeID uint64) EncodedKey {
	return newKey(KeyKindFlowOperatorState, u64be(flowID), u64be(nodeID))
}

// DecodeRowKey extracts the (primitiveID, rowNumber) pair a RowKey was
// built from, or ok=false if k isn't a row key of the expected shape.
func DecodeRowKey(k EncodedKey) (primitiveID, rowNumber uint64, ok bool) {
	if len(k) != 2+8+8 || k.Kind() != KeyKindRow {
		return 0, 0, false
	}
	return binary.BigEndian.Uint64(k[2:10]), binary.BigEndian.Uint64(k[10:18]), true
}

func (k EncodedKey) Kind() KeyKind {
	if len(k) < 2 {
		return 0
	}
	return KeyKind(k[1])
}

func (k EncodedKey) Bytes() []byte { return []byte(k) }

func (k EncodedKey) Equal(other EncodedKey) bool { return bytes.Equal(k, other) }

func (k EncodedKey) Compare(other EncodedKey) int { return bytes.Compare(k, other) }

// HasPrefix reports whether k falls within the given prefix's scan range.
func (k EncodedKey) HasPrefix(prefix EncodedKey) bool {
	return bytes.HasPrefix(k, prefix)
}
