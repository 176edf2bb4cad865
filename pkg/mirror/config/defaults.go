package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Defaults for the tool configuration.
const (
	DefaultOnAccessDenied = "skip"
	DefaultOutputFormat   = "plain"
	DefaultLogLevel       = "info"
	DefaultConsoleLevel   = "warn"
)

// DefaultJournalDir returns the default journal directory,
// $XDG_STATE_HOME/mirror/journal.
func DefaultJournalDir() string {
	return filepath.Join(xdg.StateHome, "mirror", "journal")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("walk.on_access_denied", DefaultOnAccessDenied)
	v.SetDefault("copy.preserve_mtime", true)
	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.dir", DefaultJournalDir())
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.console_level", DefaultConsoleLevel)
	v.SetDefault("logging.path", "") // empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", 10*1024*1024)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.compress", true)
}
