package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// TestLoadDefaults verifies the defaults with no config file present.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "skip", cfg.Walk.OnAccessDenied)
	assert.True(t, cfg.Copy.PreserveMTime)
	assert.Equal(t, "plain", cfg.Output.Format)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Rotation.Compress)
}

// TestLoadFile verifies explicit config file values override defaults.
func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"walk:\n  on_access_denied: fail\noutput:\n  format: json\ncopy:\n  preserve_mtime: false\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fail", cfg.Walk.OnAccessDenied)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.False(t, cfg.Copy.PreserveMTime)
	assert.Equal(t, walker.Options{OnAccessDenied: walker.PolicyFail}, cfg.WalkOptions())
}

// TestLoadEnvOverride verifies MIRROR_* environment overrides.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MIRROR_OUTPUT_FORMAT", "json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Output.Format)
}

// TestValidate rejects unknown policy and format values.
func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Walk.OnAccessDenied = "maybe"
	cfg.Output.Format = "plain"
	assert.Error(t, cfg.Validate())

	cfg.Walk.OnAccessDenied = "skip"
	cfg.Output.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg.Output.Format = "json"
	assert.NoError(t, cfg.Validate())
}
