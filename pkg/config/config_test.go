package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFillsEveryKnob(t *testing.T) {
	c := Default()
	assert.Equal(t, "reifydb-data", c.DataDir)
	assert.Greater(t, c.Store.HotRetentionVersions, 0)
	assert.Greater(t, c.Store.WarmRetentionVersions, c.Store.HotRetentionVersions)
	assert.Equal(t, 1024, c.VM.BatchSize)
	assert.Equal(t, uint64(100_000), c.Flow.MaxLag)
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reifydb.yaml")
	yamlDoc := "dataDir: /var/lib/reifydb\nvm:\n  batchSize: 256\nflow:\n  maxLag: 42\n"
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/reifydb", c.DataDir)
	assert.Equal(t, 256, c.VM.BatchSize)
	assert.Equal(t, uint64(42), c.Flow.MaxLag)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Store.MergeInterval, c.Store.MergeInterval)
}

func TestLoadMissingFileReturnsDefaultsAndError(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, Default(), c)
}

func TestMergerConfigProjection(t *testing.T) {
	c := Default()
	c.Store.MergeInterval = time.Minute
	mc := c.MergerConfig()
	assert.Equal(t, time.Minute, mc.Interval)
	assert.Equal(t, c.Store.HotRetentionVersions, mc.HotMaxAge)
}
