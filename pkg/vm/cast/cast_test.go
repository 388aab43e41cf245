package cast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
	"github.com/reifydb/reifydb/pkg/vm/cast"
)

func TestCastNumericNarrowing(t *testing.T) {
	v, err := cast.Cast(types.Int(types.KindInt8, 100), types.KindInt1)
	require.NoError(t, err)
	assert.Equal(t, int64(100), v.AsInt())

	_, err = cast.Cast(types.Int(types.KindInt8, 300), types.KindInt1)
	assert.Error(t, err)
}

func TestCastUndefinedPreservesKind(t *testing.T) {
	v, err := cast.Cast(types.Undefined(types.KindInt8), types.KindUtf8)
	require.NoError(t, err)
	assert.False(t, v.Defined)
	assert.Equal(t, types.KindUtf8, v.Kind)
}

func TestCastTextToBool(t *testing.T) {
	v, err := cast.Cast(types.Utf8("true"), types.KindBool)
	require.NoError(t, err)
	assert.True(t, v.AsBool())

	_, err = cast.Cast(types.Utf8("nope"), types.KindBool)
	assert.Error(t, err)
}

func TestCastNumberToText(t *testing.T) {
	v, err := cast.Cast(types.Int(types.KindInt4, 42), types.KindUtf8)
	require.NoError(t, err)
	assert.Equal(t, "42", v.AsString())
}

func TestCastIncompatibleKinds(t *testing.T) {
	_, err := cast.Cast(types.Bool(true), types.KindUuid4)
	assert.Error(t, err)
}
