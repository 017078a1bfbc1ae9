package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	lua "github.com/yuin/gopher-lua"
)

// Parser evaluates Lua configuration files.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser. When detector is nil the
// platform table is not injected.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile parses the Lua config at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Fields the script does not
// assign are left empty.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		info, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, info); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "getrelease" table.
func extractConfig(L *lua.LState) (*Config, error) {
	global := L.GetGlobal(luaGlobal)
	if global.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobal),
			Detail:  fmt.Sprintf("expected table, got %s", global.Type()),
		}
	}

	cfg := &Config{}
	var problems []string

	global.(*lua.LTable).ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			problems = append(problems, fmt.Sprintf("non-string key %s", key.String()))
			return
		}

		switch value.Type() {
		case lua.LTNil:
			return
		case lua.LTString:
			if !cfg.set(string(name), value.String()) {
				problems = append(problems, fmt.Sprintf("unknown field %q", string(name)))
			}
		default:
			problems = append(problems, fmt.Sprintf("field %q: expected string, got %s", string(name), value.Type()))
		}
	})

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ParseError{
			Message: "invalid configuration",
			Detail:  strings.Join(problems, "; "),
		}
	}

	return cfg, nil
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
