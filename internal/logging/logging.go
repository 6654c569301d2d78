// Package logging wraps charmbracelet/log with the leveled, human-readable
// output the teacher's src/log.go and src/textcolor.go hand-rolled with ANSI
// escapes and CSV fields. The modem core logs only synchronization events
// (lock, unlock, resync, frame drop) -- never per-sample or per-bit -- so a
// Logger sits once in internal/streamdemod and optionally cmd/modemdemo.
package logging

import (
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Logger is the interface internal/streamdemod depends on, satisfied by
// *charmlog.Logger. Accepting the interface instead of the concrete type
// lets tests substitute Discard() without pulling in the real formatter.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type wrapper struct {
	l *charmlog.Logger
}

func (w wrapper) Debugf(format string, args ...any) { w.l.Debug(sprintf(format, args...)) }
func (w wrapper) Infof(format string, args ...any)  { w.l.Info(sprintf(format, args...)) }
func (w wrapper) Warnf(format string, args ...any)  { w.l.Warn(sprintf(format, args...)) }
func (w wrapper) Errorf(format string, args ...any) { w.l.Error(sprintf(format, args...)) }

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// New returns a Logger writing leveled, timestamped lines to w at the given
// level name ("debug", "info", "warn", "error"). An unrecognized level name
// falls back to info, matching the teacher's "unknown option, use default"
// tolerance throughout config.go.
func New(w io.Writer, level string) Logger {
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           parseLevel(level),
		ReportTimestamp: true,
		Prefix:          "modem",
	})
	return wrapper{l: l}
}

// Default returns a Logger writing info-and-above to stderr.
func Default() Logger {
	return New(os.Stderr, "info")
}

// Discard returns a Logger that drops everything, for tests and library
// callers that configure their own logging.
func Discard() Logger {
	return wrapper{l: charmlog.NewWithOptions(io.Discard, charmlog.Options{})}
}

func parseLevel(level string) charmlog.Level {
	switch level {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}
