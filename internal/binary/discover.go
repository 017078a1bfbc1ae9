package binary

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/logging"
)

// Discoverer finds executable files in an extracted release.
type Discoverer struct {
	logger logging.Logger
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(logger logging.Logger) *Discoverer {
	return &Discoverer{logger: logging.OrNop(logger)}
}

// Discover returns the executables under root whose full path matches
// pattern. If root itself is an executable file it is the only result.
//
// When more than one file matches, executables inside a directory named
// "bin" win, then executables directly in root. The result is empty, not an
// error, when nothing qualifies.
func (d *Discoverer) Discover(root, pattern string) ([]string, error) {
	if isExecutableFile(root) {
		return []string{root}, nil
	}

	re, err := compilePlainPattern(pattern)
	if err != nil {
		return nil, err
	}

	var executables []string
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root || entry.IsDir() {
			return nil
		}
		if isExecutableFile(path) && re.MatchString(path) {
			executables = append(executables, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	if len(executables) == 1 {
		d.logger.Debug("found executable", "path", executables[0])
		return executables, nil
	}

	var inBin, inRoot []string
	for _, path := range executables {
		parent := filepath.Dir(path)
		if filepath.Base(parent) == "bin" {
			inBin = append(inBin, path)
		}
		if parent == filepath.Clean(root) {
			inRoot = append(inRoot, path)
		}
	}

	var result []string
	switch {
	case len(inBin) > 0:
		result = inBin
	case len(inRoot) > 0:
		result = inRoot
	}

	if len(result) == 0 {
		d.logger.Warn("no executables found", "path", root)
		return nil, nil
	}
	d.logger.Debug("found executables", "paths", result)
	return result, nil
}

// isExecutableFile follows symlinks and reports whether path is a regular
// file with any executable bit set.
func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// compilePlainPattern compiles a case-sensitive pattern, defaulting to
// MatchAll.
func compilePlainPattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		pattern = MatchAll
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
