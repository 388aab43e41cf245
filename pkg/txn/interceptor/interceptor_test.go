package interceptor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/types"
)

type recordingInterceptor struct {
	Base
	preEntityKeys  []string
	postEntityKeys []string
	preCommitCalls int
	postCommitCalls int
	failPreEntity  bool
	failPreCommit  bool
}

func (r *recordingInterceptor) PreEntity(ctx context.Context, d types.Delta) error {
	if r.failPreEntity {
		return errors.New("rejected")
	}
	r.preEntityKeys = append(r.preEntityKeys, string(d.Key))
	return nil
}

func (r *recordingInterceptor) PostEntity(ctx context.Context, d types.Delta) {
	r.postEntityKeys = append(r.postEntityKeys, string(d.Key))
}

func (r *recordingInterceptor) PreCommit(ctx context.Context, ev *Event) error {
	r.preCommitCalls++
	if r.failPreCommit {
		return errors.New("rejected")
	}
	return nil
}

func (r *recordingInterceptor) PostCommit(ctx context.Context, ev *Event) {
	r.postCommitCalls++
}

func TestChainRunsInterceptorsInOrder(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{}
	chain := NewChain(rec)

	deltas := []types.Delta{
		types.Set(types.RowKey(1, 1), []byte("a")),
		types.Set(types.RowKey(1, 2), []byte("b")),
	}

	require.NoError(t, chain.RunPreEntity(ctx, deltas))
	require.NoError(t, chain.RunPreCommit(ctx, &Event{Deltas: deltas}))
	chain.RunPostCommit(ctx, &Event{Deltas: deltas})
	chain.RunPostEntity(ctx, deltas)

	assert.Len(t, rec.preEntityKeys, 2)
	assert.Len(t, rec.postEntityKeys, 2)
	assert.Equal(t, 1, rec.preCommitCalls)
	assert.Equal(t, 1, rec.postCommitCalls)
}

func TestChainStopsAtFirstPreEntityError(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{failPreEntity: true}
	chain := NewChain(rec)

	err := chain.RunPreEntity(ctx, []types.Delta{types.Set(types.RowKey(1, 1), []byte("a"))})
	assert.Error(t, err)
}

func TestChainStopsAtFirstPreCommitError(t *testing.T) {
	ctx := context.Background()
	rec := &recordingInterceptor{failPreCommit: true}
	chain := NewChain(rec)

	err := chain.RunPreCommit(ctx, &Event{})
	assert.Error(t, err)
}
