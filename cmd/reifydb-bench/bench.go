package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/engine"
	"github.com/reifydb/reifydb/pkg/metrics"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Insert and query a synthetic table, reporting throughput",
	RunE:  runBench,
}

var benchRows int

func init() {
	benchCmd.Flags().IntVar(&benchRows, "rows", 10_000, "number of rows to insert")
}

// runBench creates demo.bench_rows, inserts benchRows one-row-per-statement
// INSERTs, runs one aggregate query over the result, and reports wall-clock
// throughput for each phase - a rough smoke test that the store/txn/vm path
// holds up under sustained commits, not a rigorous benchmark harness.
func runBench(cmd *cobra.Command, args []string) error {
	e, err := engine.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	ctx := context.Background()

	ddl, err := e.BeginAdmin(ctx)
	if err != nil {
		return err
	}
	if _, err := e.Execute(ctx, ddl, "CREATE TABLE demo.bench_rows {id: int8, value: int8}"); err != nil {
		ddl.Rollback()
		return err
	}
	if _, err := ddl.Commit(ctx); err != nil {
		return err
	}

	insertTimer := metrics.NewTimer()
	for i := 0; i < benchRows; i++ {
		t, err := e.BeginCommand(ctx)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("INSERT demo.bench_rows [{id:%d,value:%d}]", i, i%997)
		if _, err := e.Execute(ctx, t, stmt); err != nil {
			t.Rollback()
			return err
		}
		if _, err := t.Commit(ctx); err != nil {
			return err
		}
	}
	insertElapsed := insertTimer.Duration()

	queryTimer := metrics.NewTimer()
	q, err := e.BeginQuery(ctx)
	if err != nil {
		return err
	}
	rows, err := e.Execute(ctx, q, "FROM demo.bench_rows | AGGREGATE {sum(value) as total} BY {}")
	if err != nil {
		return err
	}
	queryElapsed := queryTimer.Duration()

	fmt.Printf("inserted %d rows in %s (%.0f rows/sec)\n", benchRows, insertElapsed, float64(benchRows)/insertElapsed.Seconds())
	fmt.Printf("aggregate query in %s\n", queryElapsed)
	printRows(rows)
	return nil
}
