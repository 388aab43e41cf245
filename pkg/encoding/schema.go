// Package encoding implements the self-describing binary row format and the
// content-addressable Schema fingerprint from the design notes-4.1: a fixed static
// section (schema fingerprint + validity bitvec + fixed field slots)
// followed by a dynamic tail for variable-length fields.
package encoding

import (
	"sync"

	"github.com/reifydb/reifydb/pkg/types"
)

// Field is one column of a Schema: its name, declared type, optional
// constraint, and its precomputed static-section offset.
type Field struct {
	Name       string
	Kind       types.Kind
	Constraint types.Constraint
	Offset     int
	Size       int
	Align      int
}

// Schema is an immutable, reference-counted record of ordered fields plus
// its content-addressable Fingerprint. Per the resolved open question in
// SPEC_FULL.md, Schema is authoritative; there is no separate "layout" type
// - Layout() below is a derived, cached projection of the same Fields.
type Schema struct {
	Fingerprint Fingerprint
	Fields      []Field

	staticSize int
	validityAt int // byte offset of the validity bitvec
	once       sync.Once
}

// NewSchema builds a Schema from ordered (name, kind, constraint) triples,
// computing field offsets and the fingerprint. Two schemas built from
// identical ordered fields always produce identical fingerprints.
func NewSchema(fields []FieldSpec) *Schema {
	s := &Schema{}
	s.build(fields)
	return s
}

// FieldSpec is the input to NewSchema; Offset/Size/Align are derived.
type FieldSpec struct {
	Name       string
	Kind       types.Kind
	Constraint types.Constraint
}

func (s *Schema) build(specs []FieldSpec) {
	s.Fingerprint = ComputeFingerprint(specs)

	fields := make([]Field, len(specs))
	// static section layout: [fingerprint(16)][validity bitvec][fixed slots...]
	validityBytes := (len(specs) + 7) / 8
	offset := 16 + validityBytes
	s.validityAt = 16

	for i, spec := range specs {
		size, align, _ := spec.Kind.Layout()
		offset = alignUp(offset, align)
		fields[i] = Field{
			Name:       spec.Name,
			Kind:       spec.Kind,
			Constraint: spec.Constraint,
			Offset:     offset,
			Size:       size,
			Align:      align,
		}
		offset += size
	}

	s.Fields = fields
	s.staticSize = offset
}

func alignUp(offset, align int) int {
	if align <= 1 {
		return offset
	}
	rem := offset % align
	if rem == 0 {
		return offset
	}
	return offset + (align - rem)
}

// Layout returns the schema's derived static layout: total static-section
// size and the byte offset of the validity bitvec.
func (s *Schema) Layout() (staticSize, validityOffset int) {
	return s.staticSize, s.validityAt
}

// FieldByName returns the field with the given name, or false if absent.
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldIndex returns the ordinal index of name within Fields, or -1.
func (s *Schema) FieldIndex(name string) int {
	for i, f := range s.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
