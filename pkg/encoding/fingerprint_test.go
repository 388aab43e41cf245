package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reifydb/reifydb/pkg/types"
)

func TestFingerprintIsOrderSensitive(t *testing.T) {
	a := []FieldSpec{
		{Name: "id", Kind: types.KindInt8},
		{Name: "name", Kind: types.KindUtf8},
	}
	b := []FieldSpec{
		{Name: "name", Kind: types.KindUtf8},
		{Name: "id", Kind: types.KindInt8},
	}

	assert.NotEqual(t, ComputeFingerprint(a), ComputeFingerprint(b))
}

func TestFingerprintIsDeterministic(t *testing.T) {
	specs := []FieldSpec{
		{Name: "id", Kind: types.KindInt8},
		{Name: "amount", Kind: types.KindDecimal, Constraint: types.PrecisionScale(10, 2)},
	}

	assert.Equal(t, ComputeFingerprint(specs), ComputeFingerprint(specs))
}

func TestFingerprintDistinguishesConstraints(t *testing.T) {
	withCap := []FieldSpec{{Name: "tag", Kind: types.KindUtf8, Constraint: types.MaxBytes(16)}}
	withoutCap := []FieldSpec{{Name: "tag", Kind: types.KindUtf8, Constraint: types.NoConstraint()}}

	assert.NotEqual(t, ComputeFingerprint(withCap), ComputeFingerprint(withoutCap))
}

func TestNewSchemaFingerprintMatchesComputeFingerprint(t *testing.T) {
	specs := []FieldSpec{{Name: "id", Kind: types.KindInt8}}
	s := NewSchema(specs)
	assert.Equal(t, ComputeFingerprint(specs), s.Fingerprint)
}
