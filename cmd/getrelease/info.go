package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <repo>",
		Short: "Show repository information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := release.ParseIdentity(args[0])
			if err != nil {
				return err
			}

			cfg, logger, _, err := a.loadConfig(cmd.Context(), cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			source, err := a.newSource(cfg, logger)
			if err != nil {
				return err
			}

			info, err := source.Info(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("repository info for %s: %w", id, err)
			}
			printInfo(cmd.OutOrStdout(), info)
			return nil
		},
	}
}

func printInfo(out io.Writer, info *release.RepoInfo) {
	fmt.Fprintln(out, TitleStyle.Render(info.Name))
	if info.Description != "" {
		fmt.Fprintln(out, SubtitleStyle.Render(info.Description))
	}
	fmt.Fprintln(out)

	tbl := newTable(out, "Field", "Value").
		WithFirstColumnFormatter(func(format string, vals ...interface{}) string {
			return keyStyle.Render(fmt.Sprintf(format, vals...))
		})

	rows := [][2]string{
		{"url", CmdStyle.Render(info.URL)},
		{"language", info.Language},
		{"topics", strings.Join(info.Topics, ", ")},
		{"stars", humanize.Comma(int64(info.Stars))},
		{"forks", humanize.Comma(int64(info.Forks))},
		{"issues", humanize.Comma(int64(info.Issues))},
		{"created", formatDate(info.Created)},
		{"updated", formatDate(info.Updated)},
		{"visibility", info.Visibility},
		{"archived", fmt.Sprint(info.Archived)},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		tbl.AddRow(r[0], r[1])
	}
	tbl.Print()
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%s)", t.Format(time.DateOnly), humanize.Time(*t))
}
