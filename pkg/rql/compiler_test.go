package rql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizePipeline(t *testing.T) {
	toks, err := Tokenize(`FROM demo.events | FILTER id == 2 | MAP {msg}`)
	require.NoError(t, err)
	assert.Equal(t, TokKeyword, toks[0].Kind)
	assert.Equal(t, "FROM", toks[0].Fragment)
	assert.Equal(t, TokEOF, toks[len(toks)-1].Kind)
}

func TestParseSimplePipeline(t *testing.T) {
	p, err := NewParser(`FROM demo.events | FILTER id == 2 | MAP {msg}`)
	require.NoError(t, err)
	script, err := p.ParseScript()
	require.NoError(t, err)
	require.Len(t, script.Statements, 1)

	stmt := script.Statements[0]
	require.Equal(t, StmtQuery, stmt.Tag)
	require.Len(t, stmt.Query.Stages, 3)
	assert.Equal(t, StageFrom, stmt.Query.Stages[0].Kind)
	assert.Equal(t, "events", stmt.Query.Stages[0].Source)
	assert.Equal(t, StageFilter, stmt.Query.Stages[1].Kind)
	assert.Equal(t, StageMap, stmt.Query.Stages[2].Kind)
}

func TestParseCreateTableAndInsert(t *testing.T) {
	p, err := NewParser(`CREATE TABLE demo.events {id: int4, msg: utf8, ts: uint8}`)
	require.NoError(t, err)
	script, err := p.ParseScript()
	require.NoError(t, err)
	require.Len(t, script.Statements, 1)
	stmt := script.Statements[0]
	require.Equal(t, StmtCreateTable, stmt.Tag)
	assert.Equal(t, "demo", stmt.Namespace)
	assert.Equal(t, "events", stmt.Table)
	require.Len(t, stmt.Columns, 3)
	assert.Equal(t, "id", stmt.Columns[0].Name)
	assert.Equal(t, "int4", stmt.Columns[0].Type)

	p2, err := NewParser(`INSERT demo.events [{id:1,msg:"a",ts:100},{id:2,msg:"b",ts:200}]`)
	require.NoError(t, err)
	script2, err := p2.ParseScript()
	require.NoError(t, err)
	stmt2 := script2.Statements[0]
	require.Equal(t, StmtInsert, stmt2.Tag)
	assert.Equal(t, "demo.events", stmt2.InsertTarget)
	require.Len(t, stmt2.Rows, 2)
}

func TestBuildPhysicalPlanFoldsFilterIntoScan(t *testing.T) {
	p, err := NewParser(`FROM demo.events | FILTER id == 2 | MAP {msg}`)
	require.NoError(t, err)
	script, err := p.ParseScript()
	require.NoError(t, err)

	logical, err := BuildLogicalPlan(script.Statements[0].Query)
	require.NoError(t, err)
	physical := BuildPhysicalPlan(logical)

	require.Equal(t, PhysicalMap, physical.Tag)
	require.Equal(t, PhysicalTableScan, physical.Input.Tag)
	assert.True(t, physical.Input.Pushdown)
	assert.NotNil(t, physical.Input.Predicate)
}

func TestCompilerCachesSingleStatementQueries(t *testing.T) {
	c := NewCompiler()
	src := `FROM demo.events | FILTER id > 0`

	res1, err := c.Compile(src)
	require.NoError(t, err)
	require.NotNil(t, res1.Ready)

	res2, err := c.Compile(src)
	require.NoError(t, err)
	assert.Same(t, res1.Ready, res2.Ready)
}

func TestCompilerBypassesCacheForDDLScripts(t *testing.T) {
	c := NewCompiler()
	src := `CREATE TABLE demo.events {id: int4}`
	res, err := c.Compile(src)
	require.NoError(t, err)
	assert.Nil(t, res.Ready)
	require.Len(t, res.Incremental, 1)
}

func TestAggregateEmptyGroupByProducesGlobalAggregate(t *testing.T) {
	p, err := NewParser(`FROM t | AGGREGATE {sum(v) as s}`)
	require.NoError(t, err)
	script, err := p.ParseScript()
	require.NoError(t, err)
	stage := script.Statements[0].Query.Stages[1]
	assert.Equal(t, StageAggregate, stage.Kind)
	assert.Empty(t, stage.GroupBy)
}
