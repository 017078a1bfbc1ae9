package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
)

// Output formats accepted by --output.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// listEntry is one installed repository as printed by list.
type listEntry struct {
	Name      string    `json:"name" yaml:"name"`
	Tag       string    `json:"tag" yaml:"tag"`
	Host      string    `json:"host,omitempty" yaml:"host,omitempty"`
	Symlinks  []string  `json:"symlinks" yaml:"symlinks"`
	Verified  bool      `json:"verified" yaml:"verified"`
	Published time.Time `json:"published" yaml:"published"`
	Installed time.Time `json:"installed" yaml:"installed"`
}

func newListCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed repositories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, _, err := a.loadConfig(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			records, err := metadata.NewStore(cfg.MetadataDir, logger).List()
			if err != nil {
				return fmt.Errorf("list installations: %w", err)
			}
			return printList(cmd.OutOrStdout(), records, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format (table, json, yaml)")
	return cmd
}

func listEntries(records []*metadata.Record) []listEntry {
	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		links := make([]string, 0, len(rec.Meta.Symlinks))
		for _, l := range rec.Meta.Symlinks {
			links = append(links, filepath.Base(l))
		}
		entries = append(entries, listEntry{
			Name:      rec.Meta.RepoID,
			Tag:       displayTag(rec),
			Host:      string(rec.Meta.Host),
			Symlinks:  links,
			Verified:  rec.Meta.Verified,
			Published: rec.Tag.PublishTime(),
			Installed: rec.Meta.Installed,
		})
	}
	return entries
}

// displayTag normalizes semver-looking tags ("1.2" becomes "v1.2.0").
// Other tags are shown as recorded; direct URL installs show "url".
func displayTag(rec *metadata.Record) string {
	if rec.Meta.URL != "" {
		return "url"
	}
	tag := rec.Tag.Name
	v := tag
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if semver.IsValid(v) {
		return semver.Canonical(v)
	}
	return tag
}

func printList(out io.Writer, records []*metadata.Record, format string) error {
	entries := listEntries(records)

	switch format {
	case formatTable:
		printListTable(out, entries)
		return nil
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("invalid output format %q (must be table, json or yaml)", format)
	}
}

func printListTable(out io.Writer, entries []listEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Nothing installed.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "To install a release:")
		fmt.Fprintln(out, "  getrelease install junegunn/fzf")
		return
	}

	tbl := newTable(out, "Name", "Tag", "Host", "Links", "Published", "Installed")
	for _, e := range entries {
		tbl.AddRow(
			e.Name,
			e.Tag,
			e.Host,
			strings.Join(e.Symlinks, ", "),
			e.Published.Format(time.DateOnly),
			humanize.Time(e.Installed),
		)
	}
	tbl.Print()
}

// newTable returns a table with styled headers. Widths are measured without
// ANSI escapes.
func newTable(out io.Writer, headers ...interface{}) table.Table {
	return table.New(headers...).
		WithWriter(out).
		WithWidthFunc(lipgloss.Width).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return headerStyle.Render(fmt.Sprintf(format, vals...))
		})
}
