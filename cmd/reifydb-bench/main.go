// Command reifydb-bench is the developer-facing CLI that drives the Engine
// API end to end: run an RQL script against an embedded database, or throw
// a synthetic insert/query load at it and report throughput. It is not the
// REPL/WebSocket collaborator spec.md §1 names out of scope - there is no
// wire protocol here, only direct Engine calls - but it is the same
// cobra-flags-bind-to-a-config-struct shape the teacher's cmd/warren uses.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/config"
	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var (
	cfgFile string
	cfg     config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "reifydb-bench",
	Short: "Drive a ReifyDB engine instance for smoke tests and benchmarks",
	Long: `reifydb-bench embeds a ReifyDB Engine in-process and drives it
through scripted statements or a synthetic load, without going through the
out-of-scope WebSocket wire protocol.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("reifydb-bench version %s\ncommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file (defaults used if omitted)")
	rootCmd.PersistentFlags().String("data-dir", "", "override config.dataDir")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().String("metrics-addr", "", "if set, serve /metrics and /health on this address")

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(benchCmd)
}

// initConfig loads cfg from --config (or Default()), lets --data-dir
// override the file, initializes logging, and - if --metrics-addr is set -
// starts the Prometheus/health HTTP server the same way the teacher's
// cmd/warren starts its metrics listener.
func initConfig() {
	var err error
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config %s: %v\n", cfgFile, err)
			os.Exit(1)
		}
	} else {
		cfg = config.Default()
	}

	if dataDir, _ := rootCmd.PersistentFlags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.Log.Level = log.Level(level)
	}
	if jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json"); jsonOut {
		cfg.Log.JSONOutput = true
	}
	log.Init(cfg.LogConfig())

	metrics.SetVersion(Version)
	if addr, _ := rootCmd.PersistentFlags().GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Logger.Error().Err(err).Msg("metrics server exited")
			}
		}()
		log.Logger.Info().Str("addr", addr).Msg("metrics server listening")
	}
}
