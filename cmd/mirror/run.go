package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/mirror/pkg/mirror/config"
	"github.com/jamesainslie/mirror/pkg/mirror/copier"
	"github.com/jamesainslie/mirror/pkg/mirror/encoding"
	"github.com/jamesainslie/mirror/pkg/mirror/journal"
	"github.com/jamesainslie/mirror/pkg/mirror/logging"
	"github.com/jamesainslie/mirror/pkg/mirror/manifest"
	"github.com/jamesainslie/mirror/pkg/mirror/output"
	"github.com/jamesainslie/mirror/pkg/mirror/visit"
)

// Tool names accepted by --tool.
const (
	toolCreateDB  = "create-db"
	toolVerifyDir = "verify-dir"
	toolMergeDir  = "merge-dir"
)

// ErrArgument marks bad or missing command-line arguments.
var ErrArgument = errors.New("invalid arguments")

// runTool validates the argument surface, bootstraps the ambient stack and
// dispatches to the selected tool.
func runTool(cmd *cobra.Command, args []string) error {
	if err := validateArgs(args); err != nil {
		cmd.PrintErrln(err.Error())
		cmd.PrintErrf("Try '%s --help' for more information.\n", cmd.Name())
		return err
	}

	if err := encoding.Init(); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.Logging.Path,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
		Rotation: logging.RotationConfig{
			MaxSize:    cfg.Logging.Rotation.MaxSize,
			MaxBackups: cfg.Logging.Rotation.MaxBackups,
			Compress:   cfg.Logging.Rotation.Compress,
		},
	}); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()

	printer, err := output.New(cfg.Output.Format, os.Stderr, os.Stdout)
	if err != nil {
		return err
	}

	man, err := manifest.Open(dbPath, toolName == toolCreateDB)
	if err != nil {
		return err
	}
	defer func() { _ = man.Close() }()

	src := args[0]
	dest := ""
	if len(args) == 2 {
		dest = args[1]
	}

	start := time.Now()
	var stats *visit.Stats
	var runErr error

	switch toolName {
	case toolCreateDB:
		stats, runErr = visit.CreateDB(man, src, cfg.WalkOptions())
	case toolVerifyDir:
		stats, runErr = visit.VerifyDir(man, src, printer, cfg.WalkOptions())
	case toolMergeDir:
		stats, runErr = visit.MergeDir(man, src, dest, printer, cfg.WalkOptions(), copier.Options{
			PreserveMTime: cfg.Copy.PreserveMTime,
			Walk:          cfg.WalkOptions(),
		})
	}
	elapsed := time.Since(start)

	summary := summarize(stats, src, dest, elapsed, runErr == nil)
	if perr := printer.Summary(summary); perr != nil && runErr == nil {
		runErr = perr
	}

	if cfg.Journal.Enabled {
		logRun(cfg.Journal.Dir, stats, src, dest, elapsed, runErr)
	}
	return runErr
}

// validateArgs enforces the positional argument contract of the three tools.
func validateArgs(args []string) error {
	switch toolName {
	case "":
		return fmt.Errorf("%w: no tool specified", ErrArgument)
	case toolCreateDB, toolVerifyDir, toolMergeDir:
	default:
		return fmt.Errorf("%w: unknown tool %q", ErrArgument, toolName)
	}
	if dbPath == "" {
		return fmt.Errorf("%w: no manifest database specified", ErrArgument)
	}
	switch {
	case len(args) == 0:
		return fmt.Errorf("%w: no SOURCE file/directory", ErrArgument)
	case len(args) > 2:
		return fmt.Errorf("%w: only SOURCE and DEST files/directories can be specified", ErrArgument)
	case toolName == toolMergeDir && len(args) != 2:
		return fmt.Errorf("%w: SOURCE and DEST files/directories must be specified for merge-dir", ErrArgument)
	case toolName != toolMergeDir && len(args) == 2:
		return fmt.Errorf("%w: only a SOURCE file/directory can be specified for %s", ErrArgument, toolName)
	}
	return nil
}

// applyFlagOverrides lets explicit flags win over file and environment
// configuration.
func applyFlagOverrides(cfg *config.Config) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if onAccessDenied != "" {
		cfg.Walk.OnAccessDenied = onAccessDenied
	}
	if noPreserve {
		cfg.Copy.PreserveMTime = false
	}
	if noJournal {
		cfg.Journal.Enabled = false
	}
}

func summarize(stats *visit.Stats, src, dest string, elapsed time.Duration, complete bool) output.Summary {
	root := src
	if toolName == toolMergeDir {
		root = dest
	}
	return output.Summary{
		Tool:        toolName,
		Root:        root,
		Dirs:        stats.Dirs,
		Files:       stats.Files,
		BytesHashed: stats.BytesHashed,
		NewFiles:    stats.NewFiles,
		Missing:     stats.Missing,
		Mismatched:  stats.Mismatched,
		MissingDirs: stats.MissingDirs,
		Copied:      stats.Copied,
		Elapsed:     elapsed,
		Complete:    complete,
	}
}

// logRun appends the run to the operation journal. Journal failures are
// logged, never fatal.
func logRun(dir string, stats *visit.Stats, src, dest string, elapsed time.Duration, runErr error) {
	j, err := journal.New(dir)
	if err != nil {
		logging.Get("cli").Warn("journal disabled", "error", err)
		return
	}
	outcome := "ok"
	if runErr != nil {
		outcome = runErr.Error()
	}
	if _, err := j.Log(journal.Entry{
		Tool:     toolName,
		Root:     src,
		Dest:     dest,
		Dirs:     stats.Dirs,
		Files:    stats.Files,
		NewFiles: stats.NewFiles,
		Missing:  stats.Missing,
		Mismatch: stats.Mismatched,
		Copied:   stats.Copied,
		Elapsed:  elapsed,
		Outcome:  outcome,
	}); err != nil {
		logging.Get("cli").Warn("failed to record journal entry", "error", err)
	}
}
