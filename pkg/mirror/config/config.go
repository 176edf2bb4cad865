// Package config loads the mirror tool configuration. Settings come from a
// YAML file under the XDG config directory, MIRROR_* environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/jamesainslie/mirror/pkg/mirror/walker"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    int64 `mapstructure:"max_size"`
	MaxBackups int   `mapstructure:"max_backups"`
	Compress   bool  `mapstructure:"compress"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string         `mapstructure:"level"`
	Path         string         `mapstructure:"path"`
	ConsoleLevel string         `mapstructure:"console_level"`
	Rotation     RotationConfig `mapstructure:"rotation"`
}

// WalkConfig configures traversal policy.
type WalkConfig struct {
	// OnAccessDenied is "skip" or "fail". Applies to descents only;
	// access denied on the walk root is always fatal.
	OnAccessDenied string `mapstructure:"on_access_denied"`
}

// CopyConfig configures the merge tool's copy engine.
type CopyConfig struct {
	// PreserveMTime carries source modification times onto merged files
	// so a merged tree verifies cleanly.
	PreserveMTime bool `mapstructure:"preserve_mtime"`
}

// OutputConfig configures event and summary rendering.
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// JournalConfig configures the per-run operation journal.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// Config is the application configuration.
type Config struct {
	Walk    WalkConfig    `mapstructure:"walk"`
	Copy    CopyConfig    `mapstructure:"copy"`
	Output  OutputConfig  `mapstructure:"output"`
	Journal JournalConfig `mapstructure:"journal"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment.
//
// Config file locations (first hit wins):
//   - $XDG_CONFIG_HOME/mirror/config.yaml
//   - $HOME/.config/mirror/config.yaml
//
// Environment variables use the MIRROR_ prefix, e.g. MIRROR_WALK_ON_ACCESS_DENIED.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "mirror"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "mirror"))
		}
	}

	v.SetEnvPrefix("MIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := walker.ParsePolicy(c.Walk.OnAccessDenied); err != nil {
		return err
	}
	switch c.Output.Format {
	case "plain", "json":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}
	return nil
}

// WalkOptions converts the walk policy into walker options.
func (c *Config) WalkOptions() walker.Options {
	policy, _ := walker.ParsePolicy(c.Walk.OnAccessDenied)
	return walker.Options{OnAccessDenied: policy}
}
