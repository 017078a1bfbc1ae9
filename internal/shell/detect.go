package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// Detection methods reported in DetectionResult.Method.
const (
	MethodEnv    = "$SHELL environment variable"
	MethodParent = "parent process"
	MethodNone   = "detection failed"
)

// DetectShell detects the user's shell. $SHELL wins; the parent process
// name is the fallback. An undetectable shell is not an error.
func DetectShell(ctx context.Context) *DetectionResult {
	if shell := os.Getenv("SHELL"); shell != "" {
		if shellType := parseShellFromPath(shell); shellType.IsValid() {
			return &DetectionResult{Shell: shellType, Method: MethodEnv, ShellPath: shell}
		}
	}

	if shellType, name := detectFromParentProcess(ctx); shellType.IsValid() {
		return &DetectionResult{Shell: shellType, Method: MethodParent, ShellPath: name}
	}

	return &DetectionResult{Shell: ShellUnknown, Method: MethodNone}
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/bin/zsh -> zsh
//   - -zsh (login shell) -> zsh
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(shellPath))
	baseName = strings.TrimPrefix(baseName, "-")

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	default:
		return ShellUnknown
	}
}

// detectFromParentProcess names the process that started getrelease.
func detectFromParentProcess(ctx context.Context) (ShellType, string) {
	parent, err := process.NewProcessWithContext(ctx, int32(os.Getppid()))
	if err != nil {
		return ShellUnknown, ""
	}
	name, err := parent.NameWithContext(ctx)
	if err != nil {
		return ShellUnknown, ""
	}
	return parseShellFromPath(name), name
}
