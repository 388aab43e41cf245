package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/types"
)

func TestNativeConvertsDefinedValues(t *testing.T) {
	assert.Equal(t, true, Native(types.Bool(true)))
	assert.Equal(t, int64(-7), Native(types.Int(types.KindInt4, -7)))
	assert.Equal(t, uint64(7), Native(types.Uint(types.KindUint4, 7)))
	assert.Equal(t, "hello", Native(types.Utf8("hello")))
}

func TestNativeUndefinedIsNil(t *testing.T) {
	assert.Nil(t, Native(types.Undefined(types.KindInt4)))
}

func TestResponseRoundTripsThroughJSON(t *testing.T) {
	resp := Response{
		Ok: true,
		Result: []ResultRow{
			{Columns: []string{"msg"}, Values: []any{"b"}},
		},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, resp, decoded)
}

func TestFromDiagnosticProjectsCodeAndMessage(t *testing.T) {
	d := diagnostic.New(diagnostic.CatalogTableNotFound, "unknown table %q")
	body := FromDiagnostic(d)
	assert.Equal(t, string(diagnostic.CatalogTableNotFound), body.Code)
	assert.Equal(t, "unknown table %q", body.Message)
}

func TestFromDiagnosticNilIsNil(t *testing.T) {
	assert.Nil(t, FromDiagnostic(nil))
}
