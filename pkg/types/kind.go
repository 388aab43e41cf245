package types

// Kind is the closed set of value types the engine knows how to store,
// encode, and evaluate. New kinds are never added without a corresponding
// entry in every switch that dispatches on Kind (encoding, casts, VM
// evaluation) - see the "tagged variant over trait objects" note in the
// design notes this project follows.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindBool
	KindInt1
	KindInt2
	KindInt4
	KindInt8
	KindInt16
	KindUint1
	KindUint2
	KindUint4
	KindUint8
	KindUint16
	KindFloat4
	KindFloat8
	KindUtf8
	KindBlob
	KindDecimal
	KindInt    // arbitrary-precision signed
	KindUint   // arbitrary-precision unsigned
	KindDate
	KindDateTime
	KindTime
	KindDuration
	KindUuid4
	KindUuid7
	KindIdentityID
	KindAny
	kindSentinel
)

// layout describes the static-section footprint of a Kind: for fixed-width
// kinds, Size/Align are the slot's natural size and alignment; for
// variable-width kinds the static slot is always an 8-byte (offset,length)
// reference into the dynamic section.
type layout struct {
	Size     int
	Align    int
	Variable bool
}

var layouts = [kindSentinel]layout{
	KindUndefined:  {0, 1, false},
	KindBool:       {1, 1, false},
	KindInt1:       {1, 1, false},
	KindInt2:       {2, 2, false},
	KindInt4:       {4, 4, false},
	KindInt8:       {8, 8, false},
	KindInt16:      {16, 8, false},
	KindUint1:      {1, 1, false},
	KindUint2:      {2, 2, false},
	KindUint4:      {4, 4, false},
	KindUint8:      {8, 8, false},
	KindUint16:     {16, 8, false},
	KindFloat4:     {4, 4, false},
	KindFloat8:     {8, 8, false},
	KindUtf8:       {8, 4, true},
	KindBlob:       {8, 4, true},
	KindDecimal:    {8, 4, true},
	KindInt:        {8, 4, true},
	KindUint:       {8, 4, true},
	KindDate:       {8, 8, false}, // days since epoch, int64
	KindDateTime:   {12, 8, false}, // unix seconds int64 + nanos int32
	KindTime:       {8, 8, false}, // nanoseconds since midnight, int64
	KindDuration:   {8, 8, false}, // nanoseconds, int64
	KindUuid4:      {16, 8, false},
	KindUuid7:      {16, 8, false},
	KindIdentityID: {8, 4, true},
	KindAny:        {8, 4, true},
}

// Layout returns the static-section size and alignment for k, and whether k
// is stored as a variable-length reference into the dynamic section.
func (k Kind) Layout() (size, align int, variable bool) {
	l := layouts[k]
	return l.Size, l.Align, l.Variable
}

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt1:
		return "int1"
	case KindInt2:
		return "int2"
	case KindInt4:
		return "int4"
	case KindInt8:
		return "int8"
	case KindInt16:
		return "int16"
	case KindUint1:
		return "uint1"
	case KindUint2:
		return "uint2"
	case KindUint4:
		return "uint4"
	case KindUint8:
		return "uint8"
	case KindUint16:
		return "uint16"
	case KindFloat4:
		return "float4"
	case KindFloat8:
		return "float8"
	case KindUtf8:
		return "utf8"
	case KindBlob:
		return "blob"
	case KindDecimal:
		return "decimal"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindTime:
		return "time"
	case KindDuration:
		return "duration"
	case KindUuid4:
		return "uuid4"
	case KindUuid7:
		return "uuid7"
	case KindIdentityID:
		return "identity_id"
	case KindAny:
		return "any"
	default:
		return "unknown"
	}
}

// KindFromName maps a type name as it appears in source text (e.g. the
// lexer token text of a CREATE TABLE column type) to its Kind. Matching is
// exact and case-sensitive, unlike the tokenizer's keyword matching, which
// ignores case.
func KindFromName(name string) (Kind, bool) {
	for k := KindUndefined; k < kindSentinel; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return KindUndefined, false
}

// IsNumeric reports whether k participates in arithmetic and numeric casts.
func (k Kind) IsNumeric() bool {
	switch k {
	case KindInt1, KindInt2, KindInt4, KindInt8, KindInt16,
		KindUint1, KindUint2, KindUint4, KindUint8, KindUint16,
		KindFloat4, KindFloat8, KindDecimal, KindInt, KindUint:
		return true
	default:
		return false
	}
}

// IsInteger reports whether k is a fixed-width or arbitrary-precision
// integer kind (signed or unsigned).
func (k Kind) IsInteger() bool {
	switch k {
	case KindInt1, KindInt2, KindInt4, KindInt8, KindInt16,
		KindUint1, KindUint2, KindUint4, KindUint8, KindUint16,
		KindInt, KindUint:
		return true
	default:
		return false
	}
}

// IsTemporal reports whether k is one of the date/time family.
func (k Kind) IsTemporal() bool {
	switch k {
	case KindDate, KindDateTime, KindTime, KindDuration:
		return true
	default:
		return false
	}
}

// Constraint refines a Kind: a max-byte-length cap for Utf8/Blob, or a
// precision/scale pair for Decimal. ConstraintNone applies to every other
// Kind. Constraints participate in the schema fingerprint (the design notes).
type ConstraintTag uint8

const (
	ConstraintNone ConstraintTag = iota
	ConstraintMaxBytes
	ConstraintPrecisionScale
)

type Constraint struct {
	Tag       ConstraintTag
	MaxBytes  uint32
	Precision uint8
	Scale     uint8
}

func NoConstraint() Constraint { return Constraint{Tag: ConstraintNone} }

func MaxBytes(n uint32) Constraint {
	return Constraint{Tag: ConstraintMaxBytes, MaxBytes: n}
}

func PrecisionScale(precision, scale uint8) Constraint {
	return Constraint{Tag: ConstraintPrecisionScale, Precision: precision, Scale: scale}
}
