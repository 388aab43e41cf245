package encoding

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
)

func testSchema() *Schema {
	return NewSchema([]FieldSpec{
		{Name: "id", Kind: types.KindInt8},
		{Name: "active", Kind: types.KindBool},
		{Name: "score", Kind: types.KindFloat8},
		{Name: "name", Kind: types.KindUtf8},
		{Name: "payload", Kind: types.KindBlob},
		{Name: "big", Kind: types.KindInt16},
		{Name: "serial", Kind: types.KindInt},
		{Name: "when", Kind: types.KindDateTime},
		{Name: "tag", Kind: types.KindUuid7},
		{Name: "identity", Kind: types.KindIdentityID},
		{Name: "anything", Kind: types.KindAny},
	})
}

func TestRowRoundTrip(t *testing.T) {
	schema := testSchema()
	row := Allocate(schema)

	u7 := uuid.New()
	identity := types.NewIdentityID("order")
	now := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)

	row.SetValue(schema.FieldIndex("id"), types.Int(types.KindInt8, 42))
	row.SetValue(schema.FieldIndex("active"), types.Bool(true))
	row.SetValue(schema.FieldIndex("score"), types.Float(types.KindFloat8, 3.5))
	row.SetValue(schema.FieldIndex("name"), types.Utf8("hello"))
	row.SetValue(schema.FieldIndex("payload"), types.Blob([]byte{1, 2, 3}))
	row.SetValue(schema.FieldIndex("big"), types.BigInt(big.NewInt(-123456789012345)))
	row.SetValue(schema.FieldIndex("serial"), types.BigInt(big.NewInt(987654321)))
	row.SetValue(schema.FieldIndex("when"), types.DateTime(now))
	row.SetValue(schema.FieldIndex("tag"), types.Uuid7(u7))
	row.SetValue(schema.FieldIndex("identity"), types.IdentityIDValue(identity))
	row.SetValue(schema.FieldIndex("anything"), types.Utf8("dynamic"))

	buf := row.Encode()
	decoded, err := Decode(schema, buf)
	require.NoError(t, err)

	assert.Equal(t, int64(42), decoded.GetValue(schema.FieldIndex("id")).AsInt())
	assert.True(t, decoded.GetValue(schema.FieldIndex("active")).AsBool())
	assert.Equal(t, 3.5, decoded.GetValue(schema.FieldIndex("score")).AsFloat())
	assert.Equal(t, "hello", decoded.GetValue(schema.FieldIndex("name")).AsString())
	assert.Equal(t, []byte{1, 2, 3}, decoded.GetValue(schema.FieldIndex("payload")).AsBytes())
	assert.Equal(t, big.NewInt(-123456789012345), decoded.GetValue(schema.FieldIndex("big")).AsBigInt())
	assert.Equal(t, big.NewInt(987654321), decoded.GetValue(schema.FieldIndex("serial")).AsBigInt())
	assert.True(t, now.Equal(decoded.GetValue(schema.FieldIndex("when")).AsTime()))
	assert.Equal(t, u7, decoded.GetValue(schema.FieldIndex("tag")).AsUUID())

	gotIdentity := decoded.GetValue(schema.FieldIndex("identity")).AsIdentityID()
	assert.Equal(t, identity.UUID, gotIdentity.UUID)
	assert.Equal(t, identity.Tag, gotIdentity.Tag)

	assert.Equal(t, "dynamic", decoded.GetValue(schema.FieldIndex("anything")).AsString())
}

func TestRowValidityBit(t *testing.T) {
	schema := testSchema()
	row := Allocate(schema)
	idIdx := schema.FieldIndex("id")

	assert.False(t, row.IsDefined(idIdx))
	_, ok := row.TryGetValue(idIdx)
	assert.False(t, ok)

	row.SetValue(idIdx, types.Int(types.KindInt8, 7))
	assert.True(t, row.IsDefined(idIdx))
	v, ok := row.TryGetValue(idIdx)
	require.True(t, ok)
	assert.Equal(t, int64(7), v.AsInt())

	row.SetUndefined(idIdx)
	assert.False(t, row.IsDefined(idIdx))
}

func TestRowRewritingFixedFieldIsAllowed(t *testing.T) {
	schema := testSchema()
	row := Allocate(schema)
	idIdx := schema.FieldIndex("id")

	row.SetValue(idIdx, types.Int(types.KindInt8, 1))
	row.SetValue(idIdx, types.Int(types.KindInt8, 2))
	assert.Equal(t, int64(2), row.GetValue(idIdx).AsInt())
}

func TestRowRewritingDynamicFieldPanics(t *testing.T) {
	schema := testSchema()
	row := Allocate(schema)
	nameIdx := schema.FieldIndex("name")

	row.SetValue(nameIdx, types.Utf8("first"))
	assert.Panics(t, func() {
		row.SetValue(nameIdx, types.Utf8("second"))
	})
}

func TestRowNegativeBigIntRoundTrip(t *testing.T) {
	schema := NewSchema([]FieldSpec{{Name: "v", Kind: types.KindInt16}})
	row := Allocate(schema)
	idx := schema.FieldIndex("v")

	for _, n := range []int64{0, 1, -1, 123456789, -123456789} {
		row.SetValue(idx, types.BigInt(big.NewInt(n)))
		assert.Equal(t, big.NewInt(n), row.GetValue(idx).AsBigInt(), "n=%d", n)
	}
}
