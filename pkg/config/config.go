// Package config loads the engine's tuning knobs from a YAML document, the
// same way the teacher's deploy manifests are loaded: a plain struct with
// yaml tags, a Default() constructor filling in every threshold, and a Load
// that reads a file and overlays it on the defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reifydb/reifydb/pkg/flow/deferred"
	"github.com/reifydb/reifydb/pkg/log"
	"github.com/reifydb/reifydb/pkg/store"
)

// Config is every knob SPEC_FULL.md's ambient-stack section names: store
// tier retention and merge cadence, the VM's batch size, the deferred flow
// loop's poll interval and lag ceiling, and logging.
type Config struct {
	DataDir string `yaml:"dataDir"`

	Store struct {
		HotRetentionVersions  int           `yaml:"hotRetentionVersions"`
		WarmRetentionVersions int           `yaml:"warmRetentionVersions"`
		MergeInterval         time.Duration `yaml:"mergeInterval"`
		MergeBatchLimit       int           `yaml:"mergeBatchLimit"`
	} `yaml:"store"`

	Flow struct {
		PollInterval time.Duration `yaml:"pollInterval"`
		MaxLag       uint64        `yaml:"maxLag"`
	} `yaml:"flow"`

	VM struct {
		BatchSize int `yaml:"batchSize"`
	} `yaml:"vm"`

	Log struct {
		Level      log.Level `yaml:"level"`
		JSONOutput bool      `yaml:"jsonOutput"`
	} `yaml:"log"`
}

// Default returns the configuration the engine runs with when no file is
// supplied: the merger thresholds from pkg/store.DefaultMergerConfig plus
// the flow, VM and log settings below (the flow poll interval here is
// 500ms, while pkg/flow/deferred.Config.withDefaults falls back to 1ms),
// collected here as the one place a cmd or a deployer can see and override
// them from a single document.
func Default() Config {
	var c Config
	c.DataDir = "reifydb-data"
	mc := store.DefaultMergerConfig()
	c.Store.HotRetentionVersions = mc.HotMaxAge
	c.Store.WarmRetentionVersions = mc.WarmMaxAge
	c.Store.MergeInterval = mc.Interval
	c.Store.MergeBatchLimit = mc.BatchLimit
	c.Flow.PollInterval = 500 * time.Millisecond
	c.Flow.MaxLag = 100_000
	c.VM.BatchSize = 1024
	c.Log.Level = log.InfoLevel
	c.Log.JSONOutput = false
	return c
}

// Load reads path as YAML and overlays it onto Default(), matching the
// teacher's cmd/warren apply.go: read the whole file, yaml.Unmarshal into a
// typed struct.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// MergerConfig projects the store-tuning fields into store.MergerConfig.
func (c Config) MergerConfig() store.MergerConfig {
	return store.MergerConfig{
		Interval:   c.Store.MergeInterval,
		HotMaxAge:  c.Store.HotRetentionVersions,
		WarmMaxAge: c.Store.WarmRetentionVersions,
		BatchLimit: c.Store.MergeBatchLimit,
	}
}

// DeferredConfig projects the flow-tuning fields into deferred.Config.
func (c Config) DeferredConfig(consumerID string) deferred.Config {
	return deferred.Config{
		PollInterval: c.Flow.PollInterval,
		ConsumerID:   consumerID,
		MaxLag:       c.Flow.MaxLag,
	}
}

// LogConfig projects the logging fields into log.Config.
func (c Config) LogConfig() log.Config {
	return log.Config{Level: c.Log.Level, JSONOutput: c.Log.JSONOutput}
}
