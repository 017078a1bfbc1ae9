package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Generator renders a Config as a Lua configuration file.
type Generator struct {
	indent string
	now    func() time.Time
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ",
		now:    time.Now,
	}
}

// Generate returns Lua code assigning the global getrelease table.
// Empty fields are omitted.
func (g *Generator) Generate(cfg *Config) string {
	var buf bytes.Buffer

	buf.WriteString("-- getrelease configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(g.now().UTC().Format(time.RFC3339))
	buf.WriteString("\n--\n")
	buf.WriteString("-- A read-only `platform` table (os, arch, is_linux, is_macos, when, ...)\n")
	buf.WriteString("-- is available when this file is evaluated.\n\n")

	buf.WriteString(luaGlobal)
	buf.WriteString(" = {\n")
	for _, k := range keys {
		v := cfg.get(k)
		if v == "" {
			continue
		}
		fmt.Fprintf(&buf, "%s%s = %s,\n", g.indent, k, quoteLuaString(v))
	}
	buf.WriteString("}\n")

	return buf.String()
}

// Write renders cfg to path atomically.
func (g *Generator) Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), directoryMode); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmpPath := path + tmpFileSuffix
	if err := os.WriteFile(tmpPath, []byte(g.Generate(cfg)), fileMode); err != nil {
		return fmt.Errorf("write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config file: %w", err)
	}
	return nil
}

// quoteLuaString quotes s as a Lua string literal.
func quoteLuaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\%03d`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
