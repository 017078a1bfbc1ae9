package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

// UpgradeRequest contains the parameters for upgrading an installation.
type UpgradeRequest struct {
	RepoID    string
	AssumeYes bool
}

// UpgradeResult contains the results of the upgrade operation.
type UpgradeResult struct {
	Record   *metadata.Record
	From     string
	To       string
	UpToDate bool
}

// Upgrade moves an installation to the latest release.
//
// A missing record counts as installed at the epoch. When the installed tag
// was published at or after the latest tag nothing on disk changes.
// Installations that did not track the latest release (pinned tag,
// prerelease alias or direct URL) need confirmation to switch. The new
// release is fetched and linked before anything from the old one is
// removed, so a failure leaves the previous record in place.
func (m *Manager) Upgrade(ctx context.Context, req UpgradeRequest) (*UpgradeResult, error) {
	id, err := release.ParseIdentity(req.RepoID)
	if err != nil {
		return nil, err
	}

	rec, err := m.store.Read(id)
	if err != nil {
		return nil, err
	}
	if rec.Exists() && id.Host == release.HostUnknown {
		id.Host = rec.Meta.Host
	}

	latest, err := m.source.ReleaseTag(ctx, id, release.TagLatest)
	if err != nil {
		return nil, fmt.Errorf("latest release for %s: %w", id, err)
	}

	installedAt, latestAt := rec.Tag.PublishTime(), latest.PublishTime()
	result := &UpgradeResult{From: rec.Tag.Name, To: latest.Name}
	if !installedAt.Before(latestAt) {
		m.logger.Info("up to date", "repo", id, "installed", rec.Tag.Name, "latest", latest.Name)
		result.UpToDate = true
		result.Record = rec
		return result, nil
	}

	var prompt string
	if rec.Exists() && !rec.TracksLatest() {
		track := rec.Meta.Tag
		if rec.Meta.URL != "" {
			track = rec.Meta.URL
		}
		prompt = fmt.Sprintf("%s is installed from %q, not the latest release. Switch to %s?", id, track, latest.Name)
	} else {
		prompt = fmt.Sprintf("Upgrade %s from %q to %s?", id, rec.Tag.Name, latest.Name)
	}
	if err := m.confirm(ctx, req.AssumeYes, prompt); err != nil {
		return nil, err
	}

	install := InstallRequest{
		RepoID:       id.String(),
		Tag:          release.TagLatest,
		AssetPattern: rec.Meta.AssetPattern,
		BinPattern:   rec.Meta.BinPattern,
		SymlinkAlias: rec.Meta.SymlinkAlias,
		AssumeYes:    true,
	}
	p, err := m.prepare(ctx, id, install, latest)
	if err != nil {
		return nil, err
	}

	lock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	assetPath, verified, err := m.fetch(ctx, p, false)
	if err != nil {
		return nil, err
	}
	next, err := m.apply(p, assetPath, verified)
	if err != nil {
		return nil, err
	}

	if rec.Exists() {
		keep := append([]string{next.Meta.Asset, next.Meta.ExtractedPath}, next.Meta.Symlinks...)
		if _, err := m.removeRecordPaths(rec, keep); err != nil {
			return nil, fmt.Errorf("remove previous install: %w", err)
		}
	}
	if err := m.store.Write(next); err != nil {
		return nil, err
	}

	m.logger.Info("upgraded", "repo", id, "from", rec.Tag.Name, "to", latest.Name)
	result.Record = next
	return result, nil
}

// BatchResult summarizes UpgradeAll.
type BatchResult struct {
	Upgraded []string
	UpToDate []string
	Skipped  []string
	Failed   []string
}

// UpgradeAll upgrades every tracked repository that was not installed from
// a direct URL, one at a time. A failure is logged and the rest continue;
// all failures are returned joined.
func (m *Manager) UpgradeAll(ctx context.Context, assumeYes bool) (*BatchResult, error) {
	records, err := m.store.List()
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	var errs []error
	for _, rec := range records {
		repoID := rec.Meta.RepoID
		if rec.Meta.URL != "" {
			m.logger.Info("skipping direct URL install", "repo", repoID)
			result.Skipped = append(result.Skipped, repoID)
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res, err := m.Upgrade(ctx, UpgradeRequest{RepoID: repoID, AssumeYes: assumeYes})
		switch {
		case errors.Is(err, ErrCanceled):
			result.Skipped = append(result.Skipped, repoID)
		case err != nil:
			m.logger.Error("upgrade failed", "repo", repoID, "error", err)
			result.Failed = append(result.Failed, repoID)
			errs = append(errs, fmt.Errorf("%s: %w", repoID, err))
		case res.UpToDate:
			result.UpToDate = append(result.UpToDate, repoID)
		default:
			result.Upgraded = append(result.Upgraded, repoID)
		}
	}
	return result, errors.Join(errs...)
}
