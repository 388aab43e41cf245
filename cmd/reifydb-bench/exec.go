package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/diagnostic"
	"github.com/reifydb/reifydb/pkg/engine"
)

var execCmd = &cobra.Command{
	Use:   "exec <script.rql>",
	Short: "Execute a script of RQL statements against a fresh engine and print the result rows",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	e, err := engine.New(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer e.Close()

	ctx := context.Background()
	t, err := e.BeginAdmin(ctx)
	if err != nil {
		return err
	}

	rows, err := e.Execute(ctx, t, string(source))
	if err != nil {
		t.Rollback()
		if d, ok := err.(*diagnostic.Diagnostic); ok {
			fmt.Fprint(os.Stderr, diagnostic.Render(d))
			os.Exit(1)
		}
		return err
	}
	if _, err := t.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}

	printRows(rows)
	return nil
}

func printRows(rows []engine.Row) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}
	for _, r := range rows {
		for i, col := range r.Columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Printf("%s=%v", col, r.Values[i])
		}
		fmt.Println()
	}
}
