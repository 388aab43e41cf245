package interceptor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
)

func TestFilteredOnlyRunsInnerWhenPredicateMatches(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{}
	onlyRow1 := NewFiltered(func(d types.Delta) bool {
		return d.Key.Equal(types.RowKey(1, 1))
	}, rec)

	require.NoError(t, onlyRow1.PreEntity(ctx, types.Set(types.RowKey(1, 1), []byte("a"))))
	require.NoError(t, onlyRow1.PreEntity(ctx, types.Set(types.RowKey(1, 2), []byte("b"))))

	assert.Equal(t, []string{string(types.RowKey(1, 1))}, rec.preEntityKeys)
}

func TestFilteredPropagatesInnerError(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{failPreEntity: true}
	always := NewFiltered(func(d types.Delta) bool { return true }, rec)

	err := always.PreEntity(ctx, types.Set(types.RowKey(1, 1), []byte("a")))
	assert.Error(t, err)
}

func TestFilteredCommitHooksAlwaysDelegate(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{}
	f := NewFiltered(func(d types.Delta) bool { return false }, rec)

	require.NoError(t, f.PreCommit(ctx, &Event{}))
	f.PostCommit(ctx, &Event{})

	assert.Equal(t, 1, rec.preCommitCalls)
	assert.Equal(t, 1, rec.postCommitCalls)
}
