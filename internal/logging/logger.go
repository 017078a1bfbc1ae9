// Package logging defines the structured logger shared by getrelease components.
package logging

import (
	"io"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Logger provides structured logging with key-value pairs.
// *charmlog.Logger satisfies it directly.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg interface{}, keyvals ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg interface{}, keyvals ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg interface{}, keyvals ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg interface{}, keyvals ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(msg interface{}, keyvals ...interface{}) {}
func (noopLogger) Info(msg interface{}, keyvals ...interface{})  {}
func (noopLogger) Warn(msg interface{}, keyvals ...interface{})  {}
func (noopLogger) Error(msg interface{}, keyvals ...interface{}) {}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return noopLogger{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// New creates the process logger writing to w at the given level
// ("debug", "info", "warn", "error"). Unknown levels fall back to info.
func New(w io.Writer, level string) *charmlog.Logger {
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = charmlog.InfoLevel
	}
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           lvl,
		Prefix:          "getrelease",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}
