package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/reifydb/reifydb/pkg/types"
)

// Row is an allocated, mutable encoded row for one Schema. It owns a static
// section (schema fingerprint + validity bitvec + fixed field slots) and a
// dynamic section (append-only tail for variable-length fields), matching
// the design notes's EncodedValues layout.
//
// Static fields may be rewritten freely in place. Dynamic fields may only be
// written once per row; Go has no separate debug/release build distinction,
// so the write-once invariant is checked unconditionally - the cost is one
// bit test per Set call.
type Row struct {
	Schema  *Schema
	static  []byte
	dynamic []byte
}

// Allocate returns a new Row for schema with every field undefined.
func Allocate(schema *Schema) *Row {
	staticSize, _ := schema.Layout()
	static := make([]byte, staticSize)
	copy(static[0:16], schema.Fingerprint[:])
	return &Row{Schema: schema, static: static}
}

// Encode returns the row's wire bytes: static section followed by dynamic
// section, exactly as persisted.
func (r *Row) Encode() []byte {
	out := make([]byte, len(r.static)+len(r.dynamic))
	copy(out, r.static)
	copy(out[len(r.static):], r.dynamic)
	return out
}

// Decode reconstructs a Row view over previously encoded bytes for schema.
// It does not copy the dynamic tail; callers that retain it past the life of
// buf must copy explicitly (zero-copy reads, the design notes).
func Decode(schema *Schema, buf []byte) (*Row, error) {
	staticSize, _ := schema.Layout()
	if len(buf) < staticSize {
		return nil, fmt.Errorf("encoding: truncated row: have %d bytes, need static section of %d", len(buf), staticSize)
	}
	var fp Fingerprint
	copy(fp[:], buf[0:16])
	if fp != schema.Fingerprint {
		return nil, fmt.Errorf("encoding: fingerprint mismatch: row was encoded with a different schema")
	}
	return &Row{Schema: schema, static: buf[:staticSize], dynamic: buf[staticSize:]}, nil
}

func (r *Row) validityByte(idx int) (byteOffset int, mask byte) {
	_, validityAt := r.Schema.Layout()
	return validityAt + idx/8, 1 << uint(idx%8)
}

// IsDefined reports whether field idx has been written.
func (r *Row) IsDefined(idx int) bool {
	off, mask := r.validityByte(idx)
	return r.static[off]&mask != 0
}

func (r *Row) setDefined(idx int) {
	off, mask := r.validityByte(idx)
	r.static[off] |= mask
}

// SetUndefined clears field idx's validity bit. The underlying storage (and
// any dynamic-section bytes already appended) is left in place; only the
// validity bit governs visibility.
func (r *Row) SetUndefined(idx int) {
	off, mask := r.validityByte(idx)
	r.static[off] &^= mask
}

func (r *Row) field(idx int) Field { return r.Schema.Fields[idx] }

// SetValue writes v into field idx. Static fields may be overwritten freely;
// writing a dynamic field a second time panics - this is the "undefined
// behavior... checked" invariant from the design notes, surfaced as a Go panic
// since the row API is not exposed to untrusted input.
func (r *Row) SetValue(idx int, v types.Value) {
	f := r.field(idx)
	if !v.Defined {
		r.SetUndefined(idx)
		return
	}
	kindOK := f.Kind == v.Kind || f.Kind == types.KindAny ||
		(f.Kind == types.KindInt16 && v.Kind == types.KindInt) ||
		(f.Kind == types.KindUint16 && v.Kind == types.KindUint)
	if !kindOK {
		panic(fmt.Sprintf("encoding: field %q is %s, got %s", f.Name, f.Kind, v.Kind))
	}

	_, _, variable := f.Kind.Layout()
	if variable {
		if r.IsDefined(idx) {
			panic(fmt.Sprintf("encoding: dynamic field %q already written (append-only)", f.Name))
		}
		r.writeDynamic(f, v)
	} else {
		r.writeStatic(f, v)
	}
	r.setDefined(idx)
}

func (r *Row) writeStatic(f Field, v types.Value) {
	slot := r.static[f.Offset : f.Offset+f.Size]
	switch f.Kind {
	case types.KindBool:
		if v.AsBool() {
			slot[0] = 1
		} else {
			slot[0] = 0
		}
	case types.KindInt1:
		slot[0] = byte(int8(v.AsInt()))
	case types.KindInt2:
		binary.LittleEndian.PutUint16(slot, uint16(int16(v.AsInt())))
	case types.KindInt4:
		binary.LittleEndian.PutUint32(slot, uint32(int32(v.AsInt())))
	case types.KindInt8:
		binary.LittleEndian.PutUint64(slot, uint64(v.AsInt()))
	case types.KindUint1:
		slot[0] = byte(uint8(v.AsUint()))
	case types.KindUint2:
		binary.LittleEndian.PutUint16(slot, uint16(v.AsUint()))
	case types.KindUint4:
		binary.LittleEndian.PutUint32(slot, uint32(v.AsUint()))
	case types.KindUint8:
		binary.LittleEndian.PutUint64(slot, v.AsUint())
	case types.KindInt16, types.KindUint16:
		putBig(slot, v.AsBigInt())
	case types.KindFloat4:
		binary.LittleEndian.PutUint32(slot, math.Float32bits(float32(v.AsFloat())))
	case types.KindFloat8:
		binary.LittleEndian.PutUint64(slot, math.Float64bits(v.AsFloat()))
	case types.KindDate:
		days := v.AsTime().UTC().Unix() / 86400
		binary.LittleEndian.PutUint64(slot, uint64(days))
	case types.KindDateTime:
		t := v.AsTime().UTC()
		binary.LittleEndian.PutUint64(slot[0:8], uint64(t.Unix()))
		binary.LittleEndian.PutUint32(slot[8:12], uint32(t.Nanosecond()))
	case types.KindTime:
		binary.LittleEndian.PutUint64(slot, uint64(v.AsDuration()))
	case types.KindDuration:
		binary.LittleEndian.PutUint64(slot, uint64(v.AsDuration()))
	case types.KindUuid4, types.KindUuid7:
		u := v.AsUUID()
		copy(slot, u[:])
	default:
		panic(fmt.Sprintf("encoding: %s is not a fixed-width kind", f.Kind))
	}
}

// negateTwosComplement inverts every bit of buf and adds 1, in place, as a
// single big-endian multi-byte integer (buf[0] is the most significant
// byte). The carry from the "+1" must propagate from the least significant
// byte (the end of the slice) toward the most significant byte (its start).
func negateTwosComplement(buf []byte) {
	carry := byte(1)
	for i := len(buf) - 1; i >= 0; i-- {
		orig := buf[i]
		v := ^orig + carry
		carry = 0
		if orig == 0 && v == 0 {
			carry = 1
		}
		buf[i] = v
	}
}

func putBig(slot []byte, v *big.Int) {
	for i := range slot {
		slot[i] = 0
	}
	if v == nil {
		return
	}
	b := v.Bytes() // big-endian magnitude
	neg := v.Sign() < 0
	n := len(slot)
	if len(b) > n {
		b = b[len(b)-n:]
	}
	copy(slot[n-len(b):], b)
	if neg {
		negateTwosComplement(slot)
	}
}

func readBig(slot []byte) *big.Int {
	neg := slot[0]&0x80 != 0
	buf := make([]byte, len(slot))
	copy(buf, slot)
	if neg {
		negateTwosComplement(buf)
	}
	n := new(big.Int).SetBytes(buf)
	if neg {
		n.Neg(n)
	}
	return n
}

func (r *Row) writeDynamic(f Field, v types.Value) {
	var payload []byte
	switch f.Kind {
	case types.KindUtf8:
		payload = []byte(v.AsString())
	case types.KindBlob:
		payload = v.AsBytes()
	case types.KindDecimal:
		payload = v.AsBytes()
	case types.KindInt, types.KindUint:
		bi := v.AsBigInt()
		payload = bigBytes(bi)
	case types.KindIdentityID:
		id := v.AsIdentityID()
		payload = make([]byte, 16+len(id.Tag))
		copy(payload, id.UUID[:])
		copy(payload[16:], id.Tag)
	case types.KindAny:
		payload = EncodeAny(v)
	default:
		panic(fmt.Sprintf("encoding: %s is not a variable-width kind", f.Kind))
	}

	offset := uint32(len(r.dynamic))
	length := uint32(len(payload))
	r.dynamic = append(r.dynamic, payload...)

	slot := r.static[f.Offset : f.Offset+8]
	binary.LittleEndian.PutUint32(slot[0:4], offset)
	binary.LittleEndian.PutUint32(slot[4:8], length)
}

func bigBytes(v *big.Int) []byte {
	if v == nil {
		return nil
	}
	sign := byte(0)
	if v.Sign() < 0 {
		sign = 1
	}
	mag := v.Bytes()
	out := make([]byte, 1+len(mag))
	out[0] = sign
	copy(out[1:], mag)
	return out
}

func bigFromBytes(b []byte) *big.Int {
	if len(b) == 0 {
		return new(big.Int)
	}
	n := new(big.Int).SetBytes(b[1:])
	if b[0] == 1 {
		n.Neg(n)
	}
	return n
}

// EncodeAny serializes v into a self-describing [kind byte][raw value bytes]
// form, the same encoding KindAny dynamic fields use.
func EncodeAny(v types.Value) []byte {
	// self-describing: [kind byte][raw value bytes in the same wire form
	// as a dynamic-section payload would use for that kind]
	var payload []byte
	switch v.Kind {
	case types.KindBool:
		if v.AsBool() {
			payload = []byte{1}
		} else {
			payload = []byte{0}
		}
	case types.KindUtf8:
		payload = []byte(v.AsString())
	case types.KindBlob, types.KindDecimal:
		payload = v.AsBytes()
	case types.KindInt8:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v.AsInt()))
		payload = b
	case types.KindUint8:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, v.AsUint())
		payload = b
	default:
		payload = v.AsBytes()
	}
	out := make([]byte, 1+len(payload))
	out[0] = byte(v.Kind)
	copy(out[1:], payload)
	return out
}

// DecodeAny is EncodeAny's inverse.
func DecodeAny(b []byte) types.Value {
	if len(b) == 0 {
		return types.Undefined(types.KindAny)
	}
	kind := types.Kind(b[0])
	rest := b[1:]
	switch kind {
	case types.KindBool:
		return types.Bool(len(rest) > 0 && rest[0] == 1)
	case types.KindUtf8:
		return types.Utf8(string(rest))
	case types.KindBlob:
		return types.Blob(rest)
	case types.KindDecimal:
		return types.Decimal(string(rest))
	case types.KindInt8:
		return types.Int(types.KindInt8, int64(binary.LittleEndian.Uint64(rest)))
	case types.KindUint8:
		return types.Uint(types.KindUint8, binary.LittleEndian.Uint64(rest))
	default:
		return types.Undefined(kind)
	}
}

// GetValue reads field idx, returning an undefined value of the field's kind
// when its validity bit is clear. TryGetValue also reports whether it was set.
func (r *Row) GetValue(idx int) types.Value {
	f := r.field(idx)
	if !r.IsDefined(idx) {
		return types.Undefined(f.Kind)
	}
	_, _, variable := f.Kind.Layout()
	if variable {
		return r.readDynamic(f)
	}
	return r.readStatic(f)
}

// TryGetValue returns the value and true if field idx is defined and is of
// the schema's declared kind; otherwise it returns false (the design notes,
// try_get_X semantics).
func (r *Row) TryGetValue(idx int) (types.Value, bool) {
	if !r.IsDefined(idx) {
		return types.Value{}, false
	}
	return r.GetValue(idx), true
}

func (r *Row) readStatic(f Field) types.Value {
	slot := r.static[f.Offset : f.Offset+f.Size]
	switch f.Kind {
	case types.KindBool:
		return types.Bool(slot[0] == 1)
	case types.KindInt1:
		return types.Int(f.Kind, int64(int8(slot[0])))
	case types.KindInt2:
		return types.Int(f.Kind, int64(int16(binary.LittleEndian.Uint16(slot))))
	case types.KindInt4:
		return types.Int(f.Kind, int64(int32(binary.LittleEndian.Uint32(slot))))
	case types.KindInt8:
		return types.Int(f.Kind, int64(binary.LittleEndian.Uint64(slot)))
	case types.KindUint1:
		return types.Uint(f.Kind, uint64(slot[0]))
	case types.KindUint2:
		return types.Uint(f.Kind, uint64(binary.LittleEndian.Uint16(slot)))
	case types.KindUint4:
		return types.Uint(f.Kind, uint64(binary.LittleEndian.Uint32(slot)))
	case types.KindUint8:
		return types.Uint(f.Kind, binary.LittleEndian.Uint64(slot))
	case types.KindInt16:
		return types.BigInt(readBig(slot))
	case types.KindUint16:
		return types.BigUint(readBig(slot))
	case types.KindFloat4:
		return types.Float(f.Kind, float64(math.Float32frombits(binary.LittleEndian.Uint32(slot))))
	case types.KindFloat8:
		return types.Float(f.Kind, math.Float64frombits(binary.LittleEndian.Uint64(slot)))
	case types.KindDate:
		days := int64(binary.LittleEndian.Uint64(slot))
		return types.Date(time.Unix(days*86400, 0).UTC())
	case types.KindDateTime:
		sec := int64(binary.LittleEndian.Uint64(slot[0:8]))
		nsec := int32(binary.LittleEndian.Uint32(slot[8:12]))
		return types.DateTime(time.Unix(sec, int64(nsec)).UTC())
	case types.KindTime:
		return types.TimeOfDay(time.Duration(binary.LittleEndian.Uint64(slot)))
	case types.KindDuration:
		return types.Duration(time.Duration(binary.LittleEndian.Uint64(slot)))
	case types.KindUuid4:
		var u uuid.UUID
		copy(u[:], slot)
		return types.Uuid4(u)
	case types.KindUuid7:
		var u uuid.UUID
		copy(u[:], slot)
		return types.Uuid7(u)
	default:
		panic(fmt.Sprintf("encoding: %s is not a fixed-width kind", f.Kind))
	}
}

func (r *Row) readDynamic(f Field) types.Value {
	slot := r.static[f.Offset : f.Offset+8]
	offset := binary.LittleEndian.Uint32(slot[0:4])
	length := binary.LittleEndian.Uint32(slot[4:8])
	payload := r.dynamic[offset : offset+length]

	switch f.Kind {
	case types.KindUtf8:
		return types.Utf8(string(payload))
	case types.KindBlob:
		return types.Blob(payload)
	case types.KindDecimal:
		return types.Decimal(string(payload))
	case types.KindInt:
		return types.BigInt(bigFromBytes(payload))
	case types.KindUint:
		return types.BigUint(bigFromBytes(payload))
	case types.KindIdentityID:
		var u uuid.UUID
		copy(u[:], payload[:16])
		return types.IdentityIDValue(types.IdentityID{UUID: u, Tag: string(payload[16:])})
	case types.KindAny:
		return DecodeAny(payload)
	default:
		panic(fmt.Sprintf("encoding: %s is not a variable-width kind", f.Kind))
	}
}
