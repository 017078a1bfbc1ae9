package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/metadata"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
)

// UninstallRequest contains the parameters for removing an installation.
type UninstallRequest struct {
	RepoID    string
	AssumeYes bool
}

// UninstallResult contains the results of the uninstall operation.
type UninstallResult struct {
	Removed      []string
	NotInstalled bool
}

// Uninstall removes every link, the cached asset, the extracted tree and
// the record of an installation. Uninstalling something that is not
// installed logs a warning and succeeds.
func (m *Manager) Uninstall(ctx context.Context, req UninstallRequest) (*UninstallResult, error) {
	id, err := release.ParseIdentity(req.RepoID)
	if err != nil {
		return nil, err
	}

	rec, err := m.store.Read(id)
	if err != nil {
		return nil, err
	}
	if !rec.Exists() {
		m.logger.Warn("not installed", "repo", id, "record", m.store.Path(id))
		return &UninstallResult{NotInstalled: true}, nil
	}

	paths := append(rec.Paths(), m.store.Path(id))
	prompt := fmt.Sprintf("The following will be deleted:\n  %s\nProceed with uninstallation?", strings.Join(paths, "\n  "))
	if err := m.confirm(ctx, req.AssumeYes, prompt); err != nil {
		return nil, err
	}

	lock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer func() { _ = lock.Release() }()

	removed, err := m.removeRecordPaths(rec, nil)
	if err != nil {
		return nil, err
	}
	if err := m.store.Delete(id); err != nil {
		return nil, err
	}

	m.logger.Info("uninstalled", "repo", id)
	return &UninstallResult{Removed: append(removed, m.store.Path(id))}, nil
}

// removeRecordPaths deletes everything rec owns except the paths in keep,
// paths that contain one of them and paths nested inside one of them.
func (m *Manager) removeRecordPaths(rec *metadata.Record, keep []string) ([]string, error) {
	var removed []string
	for _, path := range rec.Paths() {
		if overlaps(path, keep) {
			m.logger.Debug("keeping path reused by new install", "path", path)
			continue
		}
		if err := m.remove(path); err != nil {
			return removed, err
		}
		removed = append(removed, path)
	}
	return removed, nil
}

func overlaps(path string, keep []string) bool {
	for _, k := range keep {
		if k == "" {
			continue
		}
		sep := string(filepath.Separator)
		if path == k || strings.HasPrefix(k, path+sep) || strings.HasPrefix(path, k+sep) {
			return true
		}
	}
	return false
}
