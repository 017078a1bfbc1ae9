package logging

import (
	"bytes"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  charmlog.Level
	}{
		{name: "debug", level: "debug", want: charmlog.DebugLevel},
		{name: "upper_case", level: "WARN", want: charmlog.WarnLevel},
		{name: "error", level: "error", want: charmlog.ErrorLevel},
		{name: "unknown_falls_back", level: "chatty", want: charmlog.InfoLevel},
		{name: "empty_falls_back", level: "", want: charmlog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(&bytes.Buffer{}, tt.level)
			assert.Equal(t, tt.want, l.GetLevel())
		})
	}
}

func TestNewWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	var l Logger = New(&buf, "info")

	l.Debug("hidden")
	l.Warn("checksum missing", "asset", "tool.tar.gz")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "checksum missing")
	assert.Contains(t, out, "asset=tool.tar.gz")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))

	custom := New(&bytes.Buffer{}, "info")
	assert.Same(t, custom, OrNop(custom))
}
