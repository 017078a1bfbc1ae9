package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

func newUninstallCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "uninstall <repo>",
		Aliases: []string{"remove", "rm"},
		Short:   "Remove an installation and its links",
		Long: `Remove the links, the downloaded asset, the unpacked files and the
install record of a repository. Only paths inside the configured bin,
cache and data directories are deleted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.setup(cmd)
			if err != nil {
				return err
			}

			result, err := e.manager.Uninstall(cmd.Context(), service.UninstallRequest{RepoID: args[0], AssumeYes: yes})
			if canceled(err) {
				fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Uninstallation canceled."))
				return nil
			}
			if err != nil {
				return fmt.Errorf("uninstall %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if result.NotInstalled {
				fmt.Fprintf(out, "%s is not installed\n", args[0])
				return nil
			}
			for _, p := range result.Removed {
				fmt.Fprintf(out, "  removed %s\n", p)
			}
			fmt.Fprintf(out, "%s Uninstalled %s\n", SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
