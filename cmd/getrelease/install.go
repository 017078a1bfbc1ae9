package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/shell"
)

type installOptions struct {
	tag          string
	url          string
	yes          bool
	downloadOnly bool
	assetPattern string
	binPattern   string
	symlinkAlias string
}

func newInstallCommand(a *app) *cobra.Command {
	opts := &installOptions{}

	cmd := &cobra.Command{
		Use:   "install <repo>",
		Short: "Install a release asset and link its executables",
		Long: `Install the release asset that best matches this machine.

The repository is given as owner/name or as a GitHub or GitLab URL. The
asset is verified against a published SHA-256 checksum when the release
has one, unpacked into the data directory, and every executable found is
linked into the bin directory.

Examples:
  getrelease install junegunn/fzf
  getrelease install https://github.com/cli/cli -t v2.40.0
  getrelease install sharkdp/bat --bin-pattern 'bat$' --symlink-alias cat2
  getrelease install owner/tool -u https://example.com/tool-linux-amd64.tar.gz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, a, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.tag, "tag", "t", release.TagLatest, `release tag, "latest" or a prerelease alias ("pre")`)
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "direct asset URL; skips asset selection and checksum lookup")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVarP(&opts.downloadOnly, "download-only", "d", false, "download and verify the asset, then stop")
	cmd.Flags().StringVar(&opts.assetPattern, "asset-pattern", "", "regular expression preferring matching asset names")
	cmd.Flags().StringVar(&opts.binPattern, "bin-pattern", "", "regular expression selecting which executables to link")
	cmd.Flags().StringVar(&opts.symlinkAlias, "symlink-alias", "", "link name used when a single executable is found")
	cmd.MarkFlagsMutuallyExclusive("tag", "url")

	return cmd
}

func runInstall(cmd *cobra.Command, a *app, repo string, opts *installOptions) error {
	e, err := a.setup(cmd)
	if err != nil {
		return err
	}

	result, err := e.manager.Install(cmd.Context(), service.InstallRequest{
		RepoID:       repo,
		Tag:          opts.tag,
		URL:          opts.url,
		AssetPattern: opts.assetPattern,
		BinPattern:   opts.binPattern,
		SymlinkAlias: opts.symlinkAlias,
		AssumeYes:    opts.yes,
		DownloadOnly: opts.downloadOnly,
	})
	if canceled(err) {
		fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("Installation canceled."))
		return nil
	}
	if err != nil {
		return fmt.Errorf("install %s: %w", repo, err)
	}

	out := cmd.OutOrStdout()
	if result.DownloadOnly {
		fmt.Fprintf(out, "%s Downloaded %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(result.AssetPath))
		printVerified(cmd, result.Verified)
		return nil
	}

	rec := result.Record
	fmt.Fprintf(out, "%s Installed %s %s\n", SuccessStyle.Render("✓"), rec.Meta.RepoID, rec.Meta.Tag)
	printVerified(cmd, result.Verified)
	for _, link := range rec.Meta.Symlinks {
		fmt.Fprintf(out, "  %s -> %s\n", CmdStyle.Render(filepath.Base(link)), link)
	}

	detected := shell.DetectShell(cmd.Context())
	if hint := shell.CheckPath(detected.Shell, e.cfg.BinDir); hint != nil {
		printPathHint(cmd, hint)
	}
	return nil
}

func printPathHint(cmd *cobra.Command, hint *shell.PathHint) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s is not on your PATH. Add this line", WarningStyle.Render("!"), hint.Dir)
	if hint.RCFile != "" {
		fmt.Fprintf(out, " to %s", hint.RCFile)
	}
	fmt.Fprintln(out, ":")
	fmt.Fprintf(out, "  %s\n", CmdStyle.Render(hint.Line))
}

func printVerified(cmd *cobra.Command, verified bool) {
	if verified {
		fmt.Fprintln(cmd.OutOrStdout(), "  checksum verified")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), WarningStyle.Render("  no checksum published; asset not verified"))
}
