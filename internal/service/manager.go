// Package service drives the install, upgrade and uninstall lifecycle of
// release assets on top of the release, binary and metadata packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/binary"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/config"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

var (
	// ErrCanceled is returned when the operator declines a confirmation.
	ErrCanceled = errors.New("canceled by operator")
	// ErrConfirmationRequired is returned when a confirmation is needed but
	// no prompter is available and AssumeYes is not set.
	ErrConfirmationRequired = errors.New("confirmation required: rerun with --yes")
)

// Source provides repository and release-tag records.
type Source interface {
	Info(ctx context.Context, id release.Identity) (*release.RepoInfo, error)
	ReleaseTag(ctx context.Context, id release.Identity, tag string) (*release.Tag, error)
}

// Prompter asks the operator questions. A nil Prompter means the caller is
// non-interactive.
type Prompter interface {
	binary.PatternAsker
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Manager owns the lifecycle of installed releases.
type Manager struct {
	cfg      *config.Config
	source   Source
	store    *metadata.Store
	prompter Prompter
	clock    Clock
	logger   logging.Logger

	scorer       *binary.Scorer
	downloader   *binary.Downloader
	checksums    *binary.ChecksumResolver
	verifier     *binary.Verifier
	extractor    *binary.Extractor
	discoverer   *binary.Discoverer
	materializer *binary.Materializer
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	download []binary.DownloaderOption
}

// WithDownloadOptions passes options through to the downloader.
func WithDownloadOptions(opts ...binary.DownloaderOption) Option {
	return func(o *options) { o.download = append(o.download, opts...) }
}

// NewManager creates a new manager with dependency injection.
func NewManager(
	cfg *config.Config,
	fp platform.Fingerprint,
	source Source,
	store *metadata.Store,
	prompter Prompter,
	clock Clock,
	logger logging.Logger,
	opts ...Option,
) *Manager {
	logger = logging.OrNop(logger)
	if clock == nil {
		clock = RealClock{}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	download := append([]binary.DownloaderOption{
		binary.WithUserAgent(cfg.UserAgent),
		binary.WithDownloadLogger(logger),
	}, o.download...)
	downloader := binary.NewDownloader(cfg.CacheDir, download...)

	return &Manager{
		cfg:          cfg,
		source:       source,
		store:        store,
		prompter:     prompter,
		clock:        clock,
		logger:       logger,
		scorer:       binary.NewScorer(fp, logger),
		downloader:   downloader,
		checksums:    binary.NewChecksumResolver(downloader, logger),
		verifier:     binary.NewVerifier(logger),
		extractor:    binary.NewExtractor(logger),
		discoverer:   binary.NewDiscoverer(logger),
		materializer: binary.NewMaterializer(cfg.BinDir, fp, logger),
	}
}

// InstallRequest contains the parameters for installing a release.
type InstallRequest struct {
	RepoID       string
	Tag          string // "latest", a prerelease alias, or a tag name
	URL          string // direct asset URL; bypasses tag lookup and scoring
	AssetPattern string
	BinPattern   string
	SymlinkAlias string
	AssumeYes    bool
	DownloadOnly bool // download and verify, then stop
}

// InstallResult contains the results of the install operation.
type InstallResult struct {
	Record       *metadata.Record // nil for download-only runs
	AssetPath    string
	Verified     bool
	DownloadOnly bool
}

// plan is a resolved install that has not touched the filesystem yet.
type plan struct {
	id       release.Identity
	req      InstallRequest
	info     *release.RepoInfo
	tag      *release.Tag
	assetURL string
	siblings []string
}

// Install resolves, downloads, verifies, extracts and links a release, then
// writes its record.
func (m *Manager) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	id, err := release.ParseIdentity(req.RepoID)
	if err != nil {
		return nil, err
	}

	p, err := m.prepare(ctx, id, req, nil)
	if err != nil {
		return nil, err
	}

	if err := m.confirm(ctx, req.AssumeYes, fmt.Sprintf("Install %s %s from %s. Proceed with installation?", id, p.tag.Name, release.Filename(p.assetURL))); err != nil {
		return nil, err
	}

	lock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	assetPath, verified, err := m.fetch(ctx, p, req.DownloadOnly)
	if err != nil {
		return nil, err
	}
	result := &InstallResult{AssetPath: assetPath, Verified: verified, DownloadOnly: req.DownloadOnly}
	if req.DownloadOnly {
		m.logger.Info("download complete", "path", assetPath)
		return result, nil
	}

	rec, err := m.apply(p, assetPath, verified)
	if err != nil {
		return nil, err
	}
	if err := m.store.Write(rec); err != nil {
		return nil, err
	}

	m.logger.Info("installed", "repo", id, "tag", rec.Tag.Name, "links", len(rec.Meta.Symlinks))
	result.Record = rec
	return result, nil
}

// prepare resolves the repository, tag and asset. It performs network
// reads only. A non-nil tag skips the tag lookup.
func (m *Manager) prepare(ctx context.Context, id release.Identity, req InstallRequest, tag *release.Tag) (*plan, error) {
	if req.Tag == "" {
		req.Tag = release.TagLatest
	}

	info, err := m.source.Info(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("repository info for %s: %w", id, err)
	}
	p := &plan{id: id, req: req, info: info}

	if req.URL != "" {
		p.tag = &release.Tag{Name: req.URL}
		p.assetURL = req.URL
		return p, nil
	}

	if tag == nil {
		tag, err = m.source.ReleaseTag(ctx, id, req.Tag)
		if err != nil {
			return nil, fmt.Errorf("release tag %q for %s: %w", req.Tag, id, err)
		}
	}
	p.tag = tag
	p.siblings = tag.AssetURLs()
	if len(p.siblings) == 0 {
		return nil, fmt.Errorf("%s %s: %w", id, tag.Name, release.ErrNoAssets)
	}

	p.assetURL, err = m.scorer.Select(ctx, p.siblings, req.AssetPattern, m.asker())
	if err != nil {
		return nil, fmt.Errorf("select asset for %s %s: %w", id, tag.Name, err)
	}
	return p, nil
}

// fetch downloads the planned asset into the cache and checks its digest.
func (m *Manager) fetch(ctx context.Context, p *plan, force bool) (string, bool, error) {
	if err := os.MkdirAll(m.cfg.CacheDir, 0o755); err != nil {
		return "", false, fmt.Errorf("create cache dir: %w", err)
	}

	assetPath, err := m.downloader.Download(ctx, p.assetURL, force)
	if err != nil {
		return "", false, err
	}

	expected, err := m.checksums.Resolve(ctx, p.assetURL, p.siblings)
	if err != nil {
		return "", false, fmt.Errorf("resolve checksum: %w", err)
	}
	verified, err := m.verifier.Verify(assetPath, expected)
	if err != nil {
		return "", false, err
	}
	return assetPath, verified, nil
}

// apply extracts, discovers and links a downloaded asset and returns the
// record describing the result. It does not write the record.
func (m *Manager) apply(p *plan, assetPath string, verified bool) (*metadata.Record, error) {
	root, err := m.extractor.Extract(assetPath, m.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", assetPath, err)
	}

	executables, err := m.discoverer.Discover(root, p.req.BinPattern)
	if err != nil {
		return nil, fmt.Errorf("discover executables: %w", err)
	}
	if len(executables) == 0 {
		return nil, fmt.Errorf("%s: %w in %s", p.id, binary.ErrNoExecutables, root)
	}

	links, err := m.materializer.Materialize(executables, p.req.SymlinkAlias, p.id.Slug())
	if err != nil {
		return nil, fmt.Errorf("link executables: %w", err)
	}

	symlinks := make([]string, 0, len(links))
	for _, l := range links {
		symlinks = append(symlinks, l.Path)
	}

	host := p.id.Host
	if host == release.HostUnknown {
		host = hostFromURL(p.info.URL)
	}

	return &metadata.Record{
		Repo: *p.info,
		Tag:  metadata.NewTagInfo(p.tag),
		Meta: metadata.Meta{
			RepoID:        p.id.String(),
			Host:          host,
			Tag:           p.req.Tag,
			URL:           p.req.URL,
			AssetPattern:  p.req.AssetPattern,
			BinPattern:    p.req.BinPattern,
			SymlinkAlias:  p.req.SymlinkAlias,
			AssetURL:      p.assetURL,
			Asset:         assetPath,
			Verified:      verified,
			ExtractedPath: root,
			ExtractedBin:  executables,
			Symlinks:      symlinks,
			Installed:     m.clock.Now(),
			InstallID:     uuid.NewString(),
		},
	}, nil
}

func hostFromURL(u string) release.Host {
	switch {
	case strings.Contains(u, string(release.HostGitHub)):
		return release.HostGitHub
	case strings.Contains(u, string(release.HostGitLab)):
		return release.HostGitLab
	default:
		return release.HostUnknown
	}
}

func (m *Manager) asker() binary.PatternAsker {
	if m.prompter == nil {
		return nil
	}
	return m.prompter
}

func (m *Manager) confirm(ctx context.Context, assumeYes bool, prompt string) error {
	if assumeYes {
		return nil
	}
	if m.prompter == nil {
		return fmt.Errorf("%w (%s)", ErrConfirmationRequired, prompt)
	}
	ok, err := m.prompter.Confirm(ctx, prompt)
	if err != nil {
		return fmt.Errorf("confirm: %w", err)
	}
	if !ok {
		return ErrCanceled
	}
	return nil
}

// managed reports whether path is strictly inside one of the directories
// getrelease writes to.
func (m *Manager) managed(path string) bool {
	path = filepath.Clean(path)
	for _, dir := range []string{m.cfg.BinDir, m.cfg.CacheDir, m.cfg.DataDir} {
		if dir == "" {
			continue
		}
		rel, err := filepath.Rel(filepath.Clean(dir), path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
			continue
		}
		return true
	}
	return false
}

// remove deletes path recursively when it lies inside a managed directory.
// Absent paths are fine.
func (m *Manager) remove(path string) error {
	if path == "" {
		return nil
	}
	if !m.managed(path) {
		m.logger.Warn("not removing path outside managed directories", "path", path)
		return nil
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	m.logger.Debug("removed", "path", path)
	return nil
}
