package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build-time variables set by go build -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	cfgFile        string
	toolName       string
	dbPath         string
	logLevel       string
	outputFormat   string
	onAccessDenied string
	noPreserve     bool
	noJournal      bool

	rootCmd = &cobra.Command{
		Use:   "mirror --tool=TOOL --db=PATH SOURCE [DEST]",
		Short: "Maintain and verify mirrors of directory trees",
		Long: `Mirror keeps a manifest of the regular files and directories under a
chosen root and uses it to verify that a tree still matches a previously
recorded state, or to merge a source tree into a destination.

Tools:
  create-db   populate the manifest from SOURCE
  verify-dir  compare SOURCE against the manifest
  merge-dir   compare DEST against the manifest; copy missing entries
              from SOURCE into DEST

Examples:
  mirror --tool=create-db  --db=photos.db ~/photos
  mirror --tool=verify-dir --db=photos.db /mnt/backup/photos
  mirror --tool=merge-dir  --db=photos.db ~/photos /mnt/backup/photos`,
		Args:          cobra.ArbitraryArgs,
		RunE:          runTool,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"mirror %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  os/arch: %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH))

	rootCmd.Flags().StringVarP(&toolName, "tool", "t", "", "tool to run: create-db, verify-dir or merge-dir")
	rootCmd.Flags().StringVarP(&dbPath, "db", "d", "", "manifest database path")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/mirror/config.yaml)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.Flags().StringVar(&outputFormat, "format", "", "output format: plain or json")
	rootCmd.Flags().StringVar(&onAccessDenied, "on-access-denied", "", "mid-walk permission failures: skip or fail")
	rootCmd.Flags().BoolVar(&noPreserve, "no-preserve-mtime", false, "do not carry source mtimes onto merged files")
	rootCmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record this run in the operation journal")
}

// Execute runs the root command, printing any fatal error as a single line.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		rootCmd.PrintErrln("Error:", err.Error())
	}
	return err
}
