// Package logging provides leveled, component-scoped logging for the mirror
// tools, backed by charmbracelet/log. Log records go to a rotating file under
// the XDG state directory; warnings and errors are additionally mirrored to
// stderr so that walk diagnostics reach the user.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    ...
//	}
//	defer logging.Close()
//
//	logger := logging.Get("walker")
//	logger.Warn("no access", "path", p)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// ErrInvalidLevel is returned when an unknown log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level string into a charmbracelet/log level.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the minimum level written to the log file.
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// ConsoleLevel is the minimum level mirrored to stderr.
	// Empty disables the console mirror.
	ConsoleLevel string

	// Rotation configures log file rotation.
	Rotation RotationConfig
}

// Logger writes to the shared log file and optionally mirrors to stderr.
type Logger struct {
	file    *log.Logger
	console *log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.emit(log.DebugLevel, msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) { l.emit(log.InfoLevel, msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.emit(log.WarnLevel, msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.emit(log.ErrorLevel, msg, args...) }

func (l *Logger) emit(level log.Level, msg string, args ...any) {
	l.file.Log(level, msg, args...)
	if l.console != nil {
		l.console.Log(level, msg, args...)
	}
}

// With returns a logger with additional persistent context.
func (l *Logger) With(args ...any) *Logger {
	out := &Logger{file: l.file.With(args...)}
	if l.console != nil {
		out.console = l.console.With(args...)
	}
	return out
}

type state struct {
	mu           sync.Mutex
	initialized  bool
	writer       *RotatingWriter
	level        log.Level
	consoleLevel log.Level
	consoleOn    bool
	loggers      map[string]*Logger
}

var globalState = &state{loggers: make(map[string]*Logger)}

// Init initializes the logging system. Before Init, loggers discard
// everything. Reinitializing replaces the previous writer.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing previous log writer: %w", err)
		}
		globalState.writer = nil
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	globalState.level = level
	globalState.writer = writer
	globalState.consoleOn = false
	if cfg.ConsoleLevel != "" {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return err
		}
		globalState.consoleLevel = consoleLevel
		globalState.consoleOn = true
	}
	globalState.initialized = true

	// Rebind existing component loggers to the new configuration in place,
	// so loggers already handed out by Get pick it up too.
	for component, l := range globalState.loggers {
		*l = *newLogger(component)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if l, ok := globalState.loggers[component]; ok {
		return l
	}
	l := newLogger(component)
	globalState.loggers[component] = l
	return l
}

// newLogger builds a component logger. Must be called with the state lock held.
func newLogger(component string) *Logger {
	if !globalState.initialized {
		return &Logger{file: log.NewWithOptions(io.Discard, log.Options{Prefix: component})}
	}
	l := &Logger{
		file: log.NewWithOptions(globalState.writer, log.Options{
			Level:           globalState.level,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}
	if globalState.consoleOn {
		l.console = log.NewWithOptions(os.Stderr, log.Options{
			Level:  globalState.consoleLevel,
			Prefix: component,
		})
	}
	return l
}

// Close flushes and closes the log file.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}
	globalState.initialized = false
	for component, l := range globalState.loggers {
		*l = *newLogger(component)
	}
	if globalState.writer != nil {
		err := globalState.writer.Close()
		globalState.writer = nil
		if err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
	}
	return nil
}

// DefaultLogPath returns the default log file path,
// $XDG_STATE_HOME/mirror/mirror.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "mirror", "mirror.log")
}
