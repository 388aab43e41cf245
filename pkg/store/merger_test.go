package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
)

func TestMergerRelocatesAgedEntriesToWarm(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := types.RowKey(1, 1)

	for i := 0; i < 10; i++ {
		_, err := s.Commit(ctx, []types.Delta{types.Set(key, []byte{byte(i)})})
		require.NoError(t, err)
	}
	require.Equal(t, 10, s.HotEntryCount())

	m := NewMerger(s, MergerConfig{Interval: time.Hour, HotMaxAge: 5, WarmMaxAge: 1_000_000, BatchLimit: 1000})
	require.NoError(t, m.tick())

	assert.Less(t, s.HotEntryCount(), 10)
	assert.Greater(t, s.WarmEntryCount(), 0)

	// reads remain correct after relocation
	val, ok, err := s.Get(ctx, key, types.VersionLatest)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{9}, val)
}
