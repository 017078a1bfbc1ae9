package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

func newUpgradeCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "upgrade <repo>",
		Aliases: []string{"update"},
		Short:   "Upgrade an installation to the latest release",
		Long: `Upgrade an installation to the latest release.

Nothing changes when the installed release is already the newest one.
Installations pinned to a tag, a prerelease alias or a direct URL ask
before switching to the latest release. The asset and executable
patterns recorded at install time are reused.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd)
			if err != nil {
				return err
			}

			result, err := e.manager.Upgrade(cmd.Context(), service.UpgradeRequest{RepoID: args[0], AssumeYes: yes})
			if canceled(err) {
				fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Upgrade canceled."))
				return nil
			}
			if err != nil {
				return fmt.Errorf("upgrade %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if result.UpToDate {
				fmt.Fprintf(out, "%s is up to date (%s)\n", args[0], result.From)
				return nil
			}
			from := result.From
			if from == "" {
				from = "nothing"
			}
			fmt.Fprintf(out, "%s Upgraded %s from %s to %s\n", SuccessStyle.Render("✓"), args[0], from, result.To)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newUpgradeAllCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "upgrade-all",
		Aliases: []string{"update-all"},
		Short:   "Upgrade every installation tracking a release",
		Long: `Upgrade every installed repository, one at a time.

Installations made from a direct URL are skipped. A failure is reported
and the remaining repositories are still upgraded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd)
			if err != nil {
				return err
			}

			result, err := e.manager.UpgradeAll(cmd.Context(), yes)
			if result != nil {
				printBatch(cmd.OutOrStdout(), result)
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func printBatch(out io.Writer, r *service.BatchResult) {
	sections := []struct {
		label string
		repos []string
	}{
		{SuccessStyle.Render("Upgraded"), r.Upgraded},
		{"Up to date", r.UpToDate},
		{WarningStyle.Render("Skipped"), r.Skipped},
		{ErrorStyle.Render("Failed"), r.Failed},
	}
	for _, s := range sections {
		if len(s.repos) == 0 {
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", s.label, strings.Join(s.repos, ", "))
	}
	if len(r.Upgraded)+len(r.UpToDate)+len(r.Skipped)+len(r.Failed) == 0 {
		fmt.Fprintln(out, "Nothing installed.")
	}
}
