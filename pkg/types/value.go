package types

import (
	"math/big"
	"time"

	"github.com/google/uuid"
)

// Value is a decoded scalar of any Kind. Only the field matching Kind is
// meaningful; the others are zero. Constructors below are the supported way
// to build one - callers should not set fields directly.
//
// This is the "tagged variant" rendition of the source's per-type value
// enum: one Go struct with a Kind discriminant instead of N wrapper types,
// matching the design note that prefers a closed, auditable set of arms
// over dynamic dispatch.
type Value struct {
	Kind    Kind
	Defined bool

	boolVal  bool
	intVal   int64
	uintVal  uint64
	floatVal float64
	bytes    []byte // Utf8, Blob, Decimal (text form), IdentityID tag
	big      *big.Int
	uuidVal  uuid.UUID
	timeVal  time.Time
	durVal   time.Duration
}

// Undefined returns the undefined value of the given kind. Undefined values
// carry a Kind so callers can still reason about what was expected.
func Undefined(k Kind) Value { return Value{Kind: k, Defined: false} }

func Bool(b bool) Value { return Value{Kind: KindBool, Defined: true, boolVal: b} }

func Int(k Kind, v int64) Value { return Value{Kind: k, Defined: true, intVal: v} }

func Uint(k Kind, v uint64) Value { return Value{Kind: k, Defined: true, uintVal: v} }

func Float(k Kind, v float64) Value { return Value{Kind: k, Defined: true, floatVal: v} }

func Utf8(s string) Value { return Value{Kind: KindUtf8, Defined: true, bytes: []byte(s)} }

func Blob(b []byte) Value { return Value{Kind: KindBlob, Defined: true, bytes: append([]byte(nil), b...)} }

func Decimal(repr string) Value { return Value{Kind: KindDecimal, Defined: true, bytes: []byte(repr)} }

func BigInt(v *big.Int) Value { return Value{Kind: KindInt, Defined: true, big: v} }

func BigUint(v *big.Int) Value { return Value{Kind: KindUint, Defined: true, big: v} }

func Date(t time.Time) Value { return Value{Kind: KindDate, Defined: true, timeVal: t} }

func DateTime(t time.Time) Value { return Value{Kind: KindDateTime, Defined: true, timeVal: t} }

func TimeOfDay(d time.Duration) Value { return Value{Kind: KindTime, Defined: true, durVal: d} }

func Duration(d time.Duration) Value { return Value{Kind: KindDuration, Defined: true, durVal: d} }

func Uuid4(u uuid.UUID) Value { return Value{Kind: KindUuid4, Defined: true, uuidVal: u} }

func Uuid7(u uuid.UUID) Value { return Value{Kind: KindUuid7, Defined: true, uuidVal: u} }

// IdentityID carries a stable UUID plus a short human-readable tag, modeled
// after original_source's identity_id.rs.
func IdentityIDValue(id IdentityID) Value {
	return Value{Kind: KindIdentityID, Defined: true, uuidVal: id.UUID, bytes: []byte(id.Tag)}
}

func (v Value) AsBool() bool           { return v.boolVal }
func (v Value) AsInt() int64           { return v.intVal }
func (v Value) AsUint() uint64         { return v.uintVal }
func (v Value) AsFloat() float64       { return v.floatVal }
func (v Value) AsString() string       { return string(v.bytes) }
func (v Value) AsBytes() []byte        { return v.bytes }
func (v Value) AsBigInt() *big.Int     { return v.big }
func (v Value) AsTime() time.Time      { return v.timeVal }
func (v Value) AsDuration() time.Duration { return v.durVal }
func (v Value) AsUUID() uuid.UUID      { return v.uuidVal }

func (v Value) AsIdentityID() IdentityID {
	return IdentityID{UUID: v.uuidVal, Tag: string(v.bytes)}
}

// IdentityID is a row-level identity: a stable UUID plus a short
// human-readable tag used for diagnostics, grounded in
// original_source/crates/core/src/value/encoded/identity_id.rs.
type IdentityID struct {
	UUID uuid.UUID
	Tag  string
}

func NewIdentityID(tag string) IdentityID {
	return IdentityID{UUID: uuid.New(), Tag: tag}
}
