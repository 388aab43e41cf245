package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/engine"
	"github.com/reifydb/reifydb/pkg/rql"
)

// newEngine opens an Engine backed by a throwaway bbolt file under the
// test's temp directory - every scenario in this file gets its own fresh
// store, matching the isolation pkg/store's own tests use.
func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func mustExec(t *testing.T, e *engine.Engine, ctx context.Context, source string) []engine.Row {
	t.Helper()
	tx, err := e.BeginCommand(ctx)
	require.NoError(t, err)
	rows, err := e.Execute(ctx, tx, source)
	if err != nil {
		tx.Rollback()
		require.NoError(t, err)
	}
	_, err = tx.Commit(ctx)
	require.NoError(t, err)
	return rows
}

func parseQuery(t *testing.T, source string) *rql.Query {
	t.Helper()
	p, err := rql.NewParser(source)
	require.NoError(t, err)
	script, err := p.ParseScript()
	require.NoError(t, err)
	require.Len(t, script.Statements, 1)
	require.Equal(t, rql.StmtQuery, script.Statements[0].Tag)
	return script.Statements[0].Query
}

func valueAt(t *testing.T, row engine.Row, col string) string {
	t.Helper()
	for i, c := range row.Columns {
		if c == col {
			return row.Values[i].AsString()
		}
	}
	t.Fatalf("row has no column %q", col)
	return ""
}

// Scenario 1 (spec.md §8.1): filter + map over a freshly inserted table
// produces a single frame with one column and one matching row.
func TestE2E_FilterMapSingleRow(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mustExec(t, e, ctx, `CREATE TABLE demo.events {id: int4, msg: utf8, ts: uint8}`)
	mustExec(t, e, ctx, `INSERT demo.events [{id:1,msg:"a",ts:100},{id:2,msg:"b",ts:200}]`)

	rows := mustExec(t, e, ctx, `FROM demo.events | FILTER id == 2 | MAP {msg}`)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Columns, 1)
	assert.Equal(t, "msg", rows[0].Columns[0])
	assert.Equal(t, "b", rows[0].Values[0].AsString())
}

// Scenario 2 (spec.md §8.2): a deferred view registered after two rows
// already exist delivers those two rows as its first subscription
// notification, then a subsequent insert delivers exactly the new row as a
// second notification.
func TestE2E_DeferredViewSubscriptionBackfillThenIncremental(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mustExec(t, e, ctx, `CREATE TABLE demo.events {id: int4, msg: utf8, ts: uint8}`)
	mustExec(t, e, ctx, `INSERT demo.events [{id:1,msg:"a",ts:100},{id:2,msg:"b",ts:200}]`)

	tx, err := e.BeginAdmin(ctx)
	require.NoError(t, err)
	query := parseQuery(t, `FROM demo.events | FILTER id > 0`)
	_, err = e.CreateView(ctx, tx, "demo", "v_positive", catalog.ViewDeferred, query)
	require.NoError(t, err)
	_, err = tx.Commit(ctx)
	require.NoError(t, err)

	subID, err := e.Subscribe("v_positive")
	require.NoError(t, err)

	require.NoError(t, e.ProcessDeferredTick(ctx))

	recvCtx, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	_ = recvCtx

	first, err := e.Recv(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, first, 2)

	mustExec(t, e, ctx, `INSERT demo.events [{id:3,msg:"c",ts:300}]`)
	require.NoError(t, e.ProcessDeferredTick(ctx))

	second, err := e.Recv(context.Background(), subID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	idVal, ok := second[0].Get("id")
	require.True(t, ok)
	assert.Equal(t, int64(3), idVal.AsInt())
}

// Scenario 3 (spec.md §8.3): inner hash join produces the cross product of
// matching keys, in whatever order, with no row for an unmatched key.
func TestE2E_HashJoinInner(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mustExec(t, e, ctx, `CREATE TABLE demo.t1 {k: int4, a: utf8}`)
	mustExec(t, e, ctx, `CREATE TABLE demo.t2 {k: int4, b: int4}`)
	mustExec(t, e, ctx, `INSERT demo.t1 [{k:1,a:"x"},{k:2,a:"y"}]`)
	mustExec(t, e, ctx, `INSERT demo.t2 [{k:1,b:10},{k:1,b:20}]`)

	rows := mustExec(t, e, ctx, `FROM demo.t1 JOIN demo.t2 ON t1.k == t2.k`)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "x", valueAt(t, r, "a"))
	}
	bs := map[int64]bool{}
	for _, r := range rows {
		for i, c := range r.Columns {
			if c == "b" {
				bs[r.Values[i].AsInt()] = true
			}
		}
	}
	assert.True(t, bs[10])
	assert.True(t, bs[20])
}

// Scenario 4 (spec.md §8.4): grouped aggregate sums per group, groups
// reported in lexicographic order.
func TestE2E_AggregateByGroup(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mustExec(t, e, ctx, `CREATE TABLE demo.obs {g: utf8, v: int4}`)
	mustExec(t, e, ctx, `INSERT demo.obs [{g:"a",v:1},{g:"a",v:2},{g:"b",v:3}]`)

	rows := mustExec(t, e, ctx, `FROM demo.obs | AGGREGATE {sum(v) as s} BY {g}`)
	require.Len(t, rows, 2)
	byGroup := map[string]int64{}
	for _, r := range rows {
		byGroup[valueAt(t, r, "g")] = r.Values[indexOf(r.Columns, "s")].AsInt()
	}
	assert.Equal(t, int64(3), byGroup["a"])
	assert.Equal(t, int64(3), byGroup["b"])
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Scenario 5 (spec.md §8.5): a row is invisible to any read begun before
// its commit, and visible to any read begun after, which is what the
// Engine's RQL surface can observe of version-floor semantics - the exact
// version-numbered case (get(k,9)==None, get(k,10)=="v1", get(k,11)=="v2")
// is pkg/store's TestGetIsVersionFloor, since the Engine has no AS OF
// clause to pin a query to an arbitrary historical version.
func TestE2E_SnapshotIsolationAcrossCommits(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	mustExec(t, e, ctx, `CREATE TABLE demo.kv {k: int4, v: utf8}`)

	rowsBefore := mustExec(t, e, ctx, `FROM demo.kv | FILTER k == 1`)
	require.Len(t, rowsBefore, 0)

	mustExec(t, e, ctx, `INSERT demo.kv [{k:1,v:"v1"}]`)

	afterFirst := mustExec(t, e, ctx, `FROM demo.kv | FILTER k == 1`)
	require.Len(t, afterFirst, 1)
	assert.Equal(t, "v1", valueAt(t, afterFirst[0], "v"))

	mustExec(t, e, ctx, `INSERT demo.kv [{k:1,v:"v2"}]`)

	afterSecond := mustExec(t, e, ctx, `FROM demo.kv | FILTER k == 1`)
	require.Len(t, afterSecond, 2, "kv has no primary key, so a second insert adds a row rather than overwriting")
}

// Scenario 6 (spec.md §8.6, Drop with up_to/keep_last) is exercised
// directly against pkg/store in TestDropReclaimsOldVersionsKeepingRecent,
// not here: RQL has no DROP statement, so the Engine has no surface for it.
