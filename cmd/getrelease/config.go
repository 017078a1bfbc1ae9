package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/config"
)

// configFlags are the settings config accepts as flags. The key is the
// flag name with dashes replaced by underscores.
var configFlags = []struct {
	flag  string
	usage string
}{
	{"log-level", "log level (debug, info, warn, error)"},
	{"github-token", "GitHub API token"},
	{"gitlab-token", "GitLab API token"},
	{"bin-dir", "directory executables are linked into"},
	{"cache-dir", "directory assets are downloaded to"},
	{"data-dir", "directory assets are unpacked into"},
	{"metadata-dir", "directory for install records and config.lua"},
	{"user-agent", "User-Agent sent with HTTP requests"},
}

func newConfigCommand(a *app) *cobra.Command {
	var dryRun bool
	values := make(map[string]*string, len(configFlags))

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the configuration file",
		Long: `Write the effective configuration, with any flags applied, to the Lua
configuration file (default <metadata_dir>/config.lua).

Values are resolved from defaults, then the existing file, then
GETRELEASE_* environment variables, then these flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := make(map[string]string)
			for _, f := range configFlags {
				if cmd.Flags().Changed(f.flag) {
					overrides[strings.ReplaceAll(f.flag, "-", "_")] = *values[f.flag]
				}
			}

			cfg, logger, _, err := a.loadConfig(cmd.Context(), cmd.ErrOrStderr(), overrides)
			if err != nil {
				return err
			}

			gen := config.NewGenerator()
			content := gen.Generate(cfg)
			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprint(out, content)
				return nil
			}

			path := a.configFile
			if path == "" {
				path = cfg.File()
			}
			if err := gen.Write(path, cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}

			for _, f := range config.DetectSensitiveData(content) {
				logger.Warn("config file contains a credential", "kind", f.PatternName, "line", f.Line, "preview", f.Preview)
			}
			fmt.Fprintf(out, "%s Wrote %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(path))
			return nil
		},
	}

	for _, f := range configFlags {
		values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the file instead of writing it")

	return cmd
}
