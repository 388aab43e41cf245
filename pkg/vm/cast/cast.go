// Package cast implements ReifyDB's explicit CAST semantics (the design notes,
// "Cast semantics"): dispatch by target category (numeric, boolean, text,
// temporal, uuid, blob), with checked narrowing conversions that report a
// CAST_OVERFLOW diagnostic instead of silently truncating, grounded in
// original_source/crates/type/src/value/number/safe/convert (SPEC_FULL.md
// D.2).
package cast

import (
	"fmt"
	"strconv"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/types"
)

// Cast converts v to the target Kind. Casting an Undefined value yields
// Undefined of the target kind, preserving the bitvec (the design notes, "Cast
// semantics").
func Cast(v types.Value, target types.Kind) (types.Value, error) {
	if !v.Defined {
		return types.Undefined(target), nil
	}

	switch {
	case target == types.KindBool:
		return castToBool(v)
	case target.IsNumeric():
		return castToNumeric(v, target)
	case target == types.KindUtf8:
		return castToText(v)
	case target.IsTemporal():
		return castTemporal(v, target)
	case target == types.KindUuid4 || target == types.KindUuid7:
		return castUUID(v, target)
	case target == types.KindBlob:
		return castToBlob(v)
	default:
		return types.Value{}, diagnostic.Newf(diagnostic.CastIncompatible, "no cast from %s to %s", v.Kind, target)
	}
}

func castToBool(v types.Value) (types.Value, error) {
	switch {
	case v.Kind == types.KindBool:
		return v, nil
	case v.Kind.IsNumeric():
		return types.Bool(numericOf(v) != 0), nil
	case v.Kind == types.KindUtf8:
		b, err := strconv.ParseBool(v.AsString())
		if err != nil {
			return types.Value{}, diagnostic.Newf(diagnostic.BooleanParse, "cannot parse %q as bool", v.AsString())
		}
		return types.Bool(b), nil
	default:
		return types.Value{}, diagnostic.Newf(diagnostic.CastIncompatible, "no cast from %s to bool", v.Kind)
	}
}

func numericOf(v types.Value) float64 {
	switch v.Kind {
	case types.KindFloat4, types.KindFloat8:
		return v.AsFloat()
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16:
		return float64(v.AsUint())
	default:
		return float64(v.AsInt())
	}
}

func castToNumeric(v types.Value, target types.Kind) (types.Value, error) {
	var f float64
	switch {
	case v.Kind.IsNumeric():
		f = numericOf(v)
	case v.Kind == types.KindBool:
		if v.AsBool() {
			f = 1
		}
	case v.Kind == types.KindUtf8:
		parsed, err := strconv.ParseFloat(v.AsString(), 64)
		if err != nil {
			return types.Value{}, diagnostic.Newf(diagnostic.NumberParse, "cannot parse %q as number", v.AsString())
		}
		f = parsed
	default:
		return types.Value{}, diagnostic.Newf(diagnostic.CastIncompatible, "no cast from %s to %s", v.Kind, target)
	}

	if target == types.KindFloat4 || target == types.KindFloat8 {
		return types.Float(target, f), nil
	}
	return safeNarrowFloat(f, target)
}

// narrowRange returns the representable [min, max] for a fixed-width
// integer Kind; ok is false for kinds this package doesn't narrow to
// (arbitrary-precision Int/Uint, which never overflow).
func narrowRange(k types.Kind) (min, max float64, ok bool) {
	switch k {
	case types.KindInt1:
		return -128, 127, true
	case types.KindInt2:
		return -32768, 32767, true
	case types.KindInt4:
		return -2147483648, 2147483647, true
	case types.KindInt8:
		return -9223372036854775808, 9223372036854775807, true
	case types.KindUint1:
		return 0, 255, true
	case types.KindUint2:
		return 0, 65535, true
	case types.KindUint4:
		return 0, 4294967295, true
	case types.KindUint8:
		return 0, 18446744073709551615, true
	default:
		return 0, 0, false
	}
}

// safeNarrowFloat is the Go rendition of original_source's checked
// narrowing conversions: it reports CAST_OVERFLOW rather than wrapping or
// truncating silently (SPEC_FULL.md D.2).
func safeNarrowFloat(f float64, target types.Kind) (types.Value, error) {
	if min, max, ok := narrowRange(target); ok {
		if f < min || f > max {
			return types.Value{}, diagnostic.Newf(diagnostic.CastOverflow,
				"value %v overflows %s (range [%v, %v])", f, target, min, max)
		}
	}
	if isUnsignedTarget(target) {
		return types.Uint(target, uint64(f)), nil
	}
	return types.Int(target, int64(f)), nil
}

func isUnsignedTarget(k types.Kind) bool {
	switch k {
	case types.KindUint1, types.KindUint2, types.KindUint4, types.KindUint8, types.KindUint16, types.KindUint:
		return true
	default:
		return false
	}
}

func castToText(v types.Value) (types.Value, error) {
	switch {
	case v.Kind == types.KindUtf8:
		return v, nil
	case v.Kind == types.KindBool:
		return types.Utf8(strconv.FormatBool(v.AsBool())), nil
	case v.Kind.IsNumeric():
		return types.Utf8(fmt.Sprintf("%v", numericOf(v))), nil
	case v.Kind == types.KindUuid4 || v.Kind == types.KindUuid7:
		return types.Utf8(v.AsUUID().String()), nil
	case v.Kind == types.KindBlob:
		return types.Utf8(string(v.AsBytes())), nil
	default:
		return types.Utf8(fmt.Sprintf("%v", v.AsString())), nil
	}
}

func castTemporal(v types.Value, target types.Kind) (types.Value, error) {
	if !v.Kind.IsTemporal() {
		return types.Value{}, diagnostic.Newf(diagnostic.TemporalParse, "no cast from %s to %s", v.Kind, target)
	}
	switch target {
	case types.KindDate:
		return types.Date(v.AsTime()), nil
	case types.KindDateTime:
		return types.DateTime(v.AsTime()), nil
	case types.KindTime:
		return types.TimeOfDay(v.AsDuration()), nil
	case types.KindDuration:
		return types.Duration(v.AsDuration()), nil
	default:
		return types.Value{}, diagnostic.Newf(diagnostic.TemporalParse, "no cast to %s", target)
	}
}

func castUUID(v types.Value, target types.Kind) (types.Value, error) {
	if v.Kind != types.KindUuid4 && v.Kind != types.KindUuid7 {
		return types.Value{}, diagnostic.Newf(diagnostic.CastIncompatible, "no cast from %s to %s", v.Kind, target)
	}
	if target == types.KindUuid4 {
		return types.Uuid4(v.AsUUID()), nil
	}
	return types.Uuid7(v.AsUUID()), nil
}

func castToBlob(v types.Value) (types.Value, error) {
	switch v.Kind {
	case types.KindBlob:
		return v, nil
	case types.KindUtf8:
		return types.Blob([]byte(v.AsString())), nil
	default:
		return types.Value{}, diagnostic.Newf(diagnostic.CastIncompatible, "no cast from %s to blob", v.Kind)
	}
}
