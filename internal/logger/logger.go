// Package logger wires apex/log handlers for the watchdog and provides
// panic-safe goroutine helpers. Components never use a package-level
// logger; they receive a log.Interface at construction.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/multi"
	"github.com/apex/log/handlers/text"
)

// Options controls handler setup.
type Options struct {
	Level   string // debug, info, warn, error
	LogDir  string // empty disables the file handler
	NoColor bool   // plain text to stderr instead of the cli handler
}

// Setup builds a logger writing to stderr and, when LogDir is set, to
// watchdog.log inside it. It returns the logger, the log file path (empty
// when file logging is off) and a close function.
func Setup(opts Options) (log.Interface, string, func(), error) {
	level, err := log.ParseLevel(levelOrDefault(opts.Level))
	if err != nil {
		return nil, "", nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	handlers := []log.Handler{}
	if opts.NoColor {
		handlers = append(handlers, text.New(os.Stderr))
	} else {
		handlers = append(handlers, cli.New(os.Stderr))
	}

	var (
		logPath string
		logFile *os.File
	)
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
			return nil, "", nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		logPath = filepath.Join(opts.LogDir, "watchdog.log")
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		handlers = append(handlers, text.New(f))
	}

	l := &log.Logger{
		Level:   level,
		Handler: multi.New(handlers...),
	}

	closeFn := func() {
		if logFile != nil {
			logFile.Close()
		}
	}
	return l, logPath, closeFn, nil
}

func levelOrDefault(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "info"
	}
	// The original config spells warnings "warning"; apex expects "warn".
	if s == "warning" {
		return "warn"
	}
	return s
}

// Recover should be deferred at the top of a goroutine to capture panics.
func Recover(l log.Interface, name string) {
	if r := recover(); r != nil {
		l.Errorf("panic in %s: %v\n%s", name, r, string(debug.Stack()))
	}
}

// SafeGo launches fn on a goroutine with panic recovery.
func SafeGo(l log.Interface, name string, fn func()) {
	go func() {
		defer Recover(l, name)
		fn()
	}()
}
