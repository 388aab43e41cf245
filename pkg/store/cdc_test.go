package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
)

func TestCDCRangeReplaysInCommitOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := types.RowKey(1, 1)

	v1, err := s.Commit(ctx, []types.Delta{types.Set(key, []byte("a"))})
	require.NoError(t, err)
	v2, err := s.Commit(ctx, []types.Delta{types.Set(key, []byte("b"))})
	require.NoError(t, err)
	v3, err := s.Commit(ctx, []types.Delta{types.Unset(key, nil)})
	require.NoError(t, err)

	entries, err := s.CDCRange(ctx, 0, v3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, v1, entries[0].Version)
	assert.Equal(t, v2, entries[1].Version)
	assert.Equal(t, v3, entries[2].Version)

	assert.Equal(t, types.ChangeInsert, entries[0].Changes[0].Kind)
	assert.Equal(t, types.ChangeUpdate, entries[1].Changes[0].Kind)
	assert.Equal(t, types.ChangeDelete, entries[2].Changes[0].Kind)
}

func TestCDCRangeIsCheckpointable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := types.RowKey(1, 1)

	v1, err := s.Commit(ctx, []types.Delta{types.Set(key, []byte("a"))})
	require.NoError(t, err)
	v2, err := s.Commit(ctx, []types.Delta{types.Set(key, []byte("b"))})
	require.NoError(t, err)

	// a consumer checkpointed at v1 should only see changes after it
	entries, err := s.CDCRange(ctx, v1, v2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, v2, entries[0].Version)
}
