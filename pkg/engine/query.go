package engine

import (
	"context"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/rql"
	"github.com/reifydb/reifydb/pkg/txn"
	"github.com/reifydb/reifydb/pkg/types"
)

// Row is one result row of an executed query: column names paired
// positionally with their values, the same shape wire responses serialize
// (pkg/wire).
type Row struct {
	Columns []string
	Values  []types.Value
}

// ExecuteQuery drives phys to exhaustion through t's snapshot, flattening
// every vm.Batch it produces into Rows.
func (e *Engine) ExecuteQuery(ctx context.Context, t *txn.Txn, phys *rql.PhysicalNode) ([]Row, error) {
	op, err := e.buildOperator(ctx, phys, t)
	if err != nil {
		return nil, err
	}
	if err := op.Initialize(ctx); err != nil {
		return nil, err
	}
	defer closeOperator(op)

	var rows []Row
	for {
		batch, err := op.Next(ctx)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			break
		}
		names := make([]string, len(batch.Columns))
		for i, c := range batch.Columns {
			names[i] = c.Name
		}
		for r := 0; r < batch.NumRows(); r++ {
			values := make([]types.Value, len(batch.Columns))
			for i, c := range batch.Columns {
				values[i] = c.Values[r]
			}
			rows = append(rows, Row{Columns: names, Values: values})
		}
	}
	return rows, nil
}

// closeOperator closes op if it exposes a Close method; child operators are
// not walked. Only the scan leaves hold a resource (a store iterator) that
// needs releasing.
func closeOperator(op any) {
	if c, ok := op.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}

// Execute runs one statement of source against t, dispatching DDL, DML and
// queries to their respective handlers. Scripts with more than one
// statement, or any DDL, are compiled incrementally (pkg/rql.Compiler) so
// each statement sees the catalog state the previous one committed;
// single-statement pure queries go through the cached Ready program.
func (e *Engine) Execute(ctx context.Context, t *txn.Txn, source string) ([]Row, error) {
	result, err := e.compiler.Compile(source)
	if err != nil {
		return nil, err
	}
	if result.Ready != nil {
		return e.execStatement(ctx, t, result.Ready.Statement, result.Ready.Physical)
	}

	var rows []Row
	for _, stmt := range result.Incremental {
		var phys *rql.PhysicalNode
		if stmt.Tag == rql.StmtQuery {
			logical, err := rql.BuildLogicalPlan(stmt.Query)
			if err != nil {
				return nil, err
			}
			phys = rql.BuildPhysicalPlan(logical)
		}
		out, err := e.execStatement(ctx, t, stmt, phys)
		if err != nil {
			return nil, err
		}
		rows = out
	}
	return rows, nil
}

func (e *Engine) execStatement(ctx context.Context, t *txn.Txn, stmt *rql.Statement, phys *rql.PhysicalNode) ([]Row, error) {
	switch stmt.Tag {
	case rql.StmtQuery:
		return e.ExecuteQuery(ctx, t, phys)

	case rql.StmtCreateNamespace:
		_, err := e.resolveNamespace(t, stmt.NewNamespace)
		return nil, err

	case rql.StmtCreateTable:
		_, err := e.createTable(ctx, t, stmt.Namespace, stmt.Table, stmt.Columns)
		return nil, err

	case rql.StmtCreateDictionary:
		_, err := e.createDictionary(t, stmt.Namespace, stmt.DictionaryName, stmt.DictionaryIDType, stmt.DictionaryValueType)
		return nil, err

	case rql.StmtInsert:
		n, err := e.insert(ctx, t, stmt.InsertTarget, stmt.Rows)
		if err != nil {
			return nil, err
		}
		return []Row{{Columns: []string{"inserted"}, Values: []types.Value{types.Int(types.KindInt8, int64(n))}}}, nil

	default:
		return nil, diagnostic.Newf(diagnostic.MapSyntax, "unsupported statement tag %d", stmt.Tag)
	}
}
