package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OnPath reports whether dir is one of the entries of pathList, a
// PATH-style list. Entries are compared after cleaning.
func OnPath(dir, pathList string) bool {
	want := filepath.Clean(dir)
	for _, entry := range filepath.SplitList(pathList) {
		if entry != "" && filepath.Clean(entry) == want {
			return true
		}
	}
	return false
}

// GetRCFilePath returns the path to the shell's RC file under home.
func GetRCFilePath(shell ShellType, home string) (string, error) {
	switch shell {
	case ShellBash:
		return filepath.Join(home, ".bashrc"), nil
	case ShellZsh:
		return filepath.Join(home, ".zshrc"), nil
	case ShellFish:
		return filepath.Join(home, ".config", "fish", "config.fish"), nil
	default:
		return "", &UnsupportedShellError{Shell: shell.String()}
	}
}

// NewPathHint builds the hint for adding dir to PATH in shell. Paths under
// home are written relative to $HOME. Unknown shells get a POSIX export
// line and no rc file.
func NewPathHint(shell ShellType, dir, home string) *PathHint {
	display := dir
	if home != "" {
		if rel, err := filepath.Rel(home, dir); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			display = "$HOME/" + filepath.ToSlash(rel)
		}
	}

	hint := &PathHint{Shell: shell, Dir: dir}
	switch shell {
	case ShellFish:
		hint.Line = "fish_add_path " + display
	default:
		hint.Line = fmt.Sprintf(`export PATH="%s:$PATH"`, display)
	}
	if rc, err := GetRCFilePath(shell, home); err == nil {
		hint.RCFile = rc
	}
	return hint
}

// CheckPath returns a hint when dir is missing from $PATH, and nil when it
// is already there.
func CheckPath(shell ShellType, dir string) *PathHint {
	if OnPath(dir, os.Getenv("PATH")) {
		return nil
	}
	home, _ := os.UserHomeDir()
	return NewPathHint(shell, dir, home)
}
