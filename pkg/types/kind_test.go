package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindLayout(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		size     int
		align    int
		variable bool
	}{
		{"bool", KindBool, 1, 1, false},
		{"int4", KindInt4, 4, 4, false},
		{"int16", KindInt16, 16, 8, false},
		{"uint8", KindUint8, 8, 8, false},
		{"float8", KindFloat8, 8, 8, false},
		{"utf8 is a reference slot", KindUtf8, 8, 4, true},
		{"blob is a reference slot", KindBlob, 8, 4, true},
		{"decimal is a reference slot", KindDecimal, 8, 4, true},
		{"uuid4 is fixed width", KindUuid4, 16, 8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, align, variable := tt.kind.Layout()
			assert.Equal(t, tt.size, size)
			assert.Equal(t, tt.align, align)
			assert.Equal(t, tt.variable, variable)
		})
	}
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindInt4.IsNumeric())
	assert.True(t, KindInt4.IsInteger())
	assert.False(t, KindUtf8.IsNumeric())
	assert.True(t, KindDate.IsTemporal())
	assert.False(t, KindBool.IsTemporal())
}

func TestEncodedKeyOrdering(t *testing.T) {
	a := RowKey(1, 1)
	b := RowKey(1, 2)
	c := RowKey(2, 1)

	assert.True(t, a.Compare(b) < 0)
	assert.True(t, b.Compare(c) < 0)
	assert.True(t, a.HasPrefix(RowPrefix(1)))
	assert.False(t, c.HasPrefix(RowPrefix(1)))
}
