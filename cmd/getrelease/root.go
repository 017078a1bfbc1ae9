package main

import (
	"context"
	"fmt"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/binary"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/config"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
)

// exitConfig is the exit code for configuration and platform errors.
const exitConfig = 2

// app carries the global flags and the factories commands build their
// dependencies from. Tests replace the factories.
type app struct {
	quiet      bool
	verbose    bool
	configFile string

	detector  platform.Detector
	newSource func(cfg *config.Config, logger logging.Logger) (service.Source, error)
	prompter  func(cmd *cobra.Command) service.Prompter
	progress  func(cmd *cobra.Command) binary.Progress
}

func newApp() *app {
	return &app{
		newSource: newReleaseSource,
		prompter:  terminalPrompter,
		progress:  terminalProgress,
	}
}

// env is everything a lifecycle command needs.
type env struct {
	cfg     *config.Config
	logger  *charmlog.Logger
	info    *platform.Info
	source  service.Source
	store   *metadata.Store
	manager *service.Manager
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "getrelease",
		Short: "Install executables from GitHub and GitLab releases",
		Long: TitleStyle.Render("getrelease") + SubtitleStyle.Render(" - install executables from release assets") + `

getrelease picks the release asset that matches this machine, verifies it
against a published checksum when one exists, unpacks it and links its
executables into your bin directory.

` + SubtitleStyle.Render("Examples:") + `
  getrelease install junegunn/fzf          Install the latest fzf release
  getrelease install cli/cli -t v2.40.0    Install a specific tag
  getrelease list                          Show installed repositories
  getrelease upgrade-all                   Upgrade everything tracking latest`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "only log errors")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log debug output")
	root.PersistentFlags().StringVar(&a.configFile, "config-file", "", "config file (default is <metadata_dir>/config.lua)")
	root.MarkFlagsMutuallyExclusive("quiet", "verbose")

	root.AddCommand(
		newConfigCommand(a),
		newInfoCommand(a),
		newListCommand(a),
		newInstallCommand(a),
		newUpgradeCommand(a),
		newUpgradeAllCommand(a),
		newUninstallCommand(a),
	)

	return root
}

// level returns the effective log level, flags first.
func (a *app) level(configured string) string {
	switch {
	case a.quiet:
		return "error"
	case a.verbose:
		return "debug"
	default:
		return configured
	}
}

// loadConfig detects the platform and resolves the configuration. The
// returned logger is already at the configured level.
func (a *app) loadConfig(ctx context.Context, stderr io.Writer, overrides map[string]string) (*config.Config, *charmlog.Logger, *platform.Info, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(stderr, a.level("info"))

	detector := a.detector
	if detector == nil {
		detector = platform.NewDetector(logger)
	}
	info, err := detector.Detect(ctx)
	if err != nil {
		return nil, nil, nil, &ExitError{Code: exitConfig, Err: err}
	}

	cfg, err := config.Load(ctx, config.LoadOptions{
		File:      a.configFile,
		Overrides: overrides,
		Detector:  platform.StaticDetector{Info: info},
	})
	if err != nil {
		return nil, nil, nil, &ExitError{Code: exitConfig, Err: err, Msg: config.FormatError(err, a.verbose)}
	}

	if lvl, err := charmlog.ParseLevel(a.level(cfg.LogLevel)); err == nil {
		logger.SetLevel(lvl)
	}
	logger.Debug("platform detected", "os", info.OS, "arch", info.Arch, "processor", info.Processor, "machine", info.Machine)

	return cfg, logger, info, nil
}

// setup builds the full dependency graph for a lifecycle command.
func (a *app) setup(cmd *cobra.Command) (*env, error) {
	cfg, logger, info, err := a.loadConfig(cmd.Context(), cmd.ErrOrStderr(), nil)
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	source, err := a.newSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	var progress binary.Progress
	if !a.quiet && a.progress != nil {
		progress = a.progress(cmd)
	}
	var opts []service.Option
	if progress != nil {
		opts = append(opts, service.WithDownloadOptions(binary.WithProgress(progress)))
	}

	var prompter service.Prompter
	if a.prompter != nil {
		prompter = a.prompter(cmd)
	}

	store := metadata.NewStore(cfg.MetadataDir, logger)
	manager := service.NewManager(cfg, info.Fingerprint, source, store, prompter, service.RealClock{}, logger, opts...)

	return &env{
		cfg:     cfg,
		logger:  logger,
		info:    info,
		source:  source,
		store:   store,
		manager: manager,
	}, nil
}

// newReleaseSource wires the GitHub and GitLab backends behind a resolver.
func newReleaseSource(cfg *config.Config, logger logging.Logger) (service.Source, error) {
	github, err := release.NewGitHub(
		release.WithToken(cfg.GitHubToken),
		release.WithUserAgent(cfg.UserAgent),
		release.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create github client: %w", err)
	}
	gitlab, err := release.NewGitLab(
		release.WithToken(cfg.GitLabToken),
		release.WithUserAgent(cfg.UserAgent),
		release.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}
	return release.NewResolver(github, gitlab, logger), nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
