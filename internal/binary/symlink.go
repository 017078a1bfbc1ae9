package binary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
)

// Link is a created command link.
type Link struct {
	Path   string
	Target string
}

// Materializer publishes executables into the bin directory.
type Materializer struct {
	binDir   string
	platform platform.Fingerprint
	logger   logging.Logger
}

// NewMaterializer creates a materializer linking into binDir.
func NewMaterializer(binDir string, fp platform.Fingerprint, logger logging.Logger) *Materializer {
	return &Materializer{binDir: binDir, platform: fp, logger: logging.OrNop(logger)}
}

// LinkNames returns the command name for each executable.
//
// A single executable is named alias when set, else repoName when its file
// name carries OS or architecture tokens, else its own file name. Several
// executables each keep their own file name.
func (m *Materializer) LinkNames(executables []string, alias, repoName string) []string {
	if len(executables) == 1 {
		base := filepath.Base(executables[0])
		switch {
		case alias != "":
			return []string{alias}
		case repoName != "" && m.platform.PlatformRegexp().MatchString(strings.ToLower(base)):
			return []string{repoName}
		default:
			return []string{base}
		}
	}

	names := make([]string, len(executables))
	for i, exe := range executables {
		names[i] = filepath.Base(exe)
	}
	return names
}

// Materialize links every executable into the bin directory and returns
// the links that were created. An executable that is not a regular file is
// skipped with a warning.
func (m *Materializer) Materialize(executables []string, alias, repoName string) ([]Link, error) {
	if len(executables) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(m.binDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bin dir: %w", err)
	}

	names := m.LinkNames(executables, alias, repoName)
	var links []Link
	for i, exe := range executables {
		path := filepath.Join(m.binDir, names[i])
		target, err := filepath.Abs(exe)
		if err != nil {
			return links, fmt.Errorf("resolve %s: %w", exe, err)
		}
		created, err := m.link(path, target)
		if err != nil {
			return links, err
		}
		if created {
			links = append(links, Link{Path: path, Target: target})
		}
	}

	m.logger.Info("linked executables", "count", len(links), "bin_dir", m.binDir)
	return links, nil
}

func (m *Materializer) link(path, target string) (bool, error) {
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		m.logger.Warn("link target is not a file, skipping", "target", target)
		return false, nil
	}

	if existing, err := os.Lstat(path); err == nil {
		if existing.IsDir() {
			return false, fmt.Errorf("link path %s is a directory", path)
		}
		if err := os.Remove(path); err != nil {
			return false, fmt.Errorf("remove existing %s: %w", path, err)
		}
	}

	if err := os.Symlink(target, path); err != nil {
		return false, fmt.Errorf("create symlink %s: %w", path, err)
	}
	m.logger.Debug("linked", "path", path, "target", target)
	return true, nil
}
