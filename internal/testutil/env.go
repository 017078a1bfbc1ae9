// Package testutil provides helpers for running getrelease in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Root        string
	Home        string
	BinDir      string
	CacheDir    string
	DataDir     string
	MetadataDir string
}

// SetupTestEnv points HOME and the XDG base directories at a fresh temp
// directory and clears every variable getrelease reads, so tests never touch
// the user's real installation. Cleanup is handled by t.TempDir and
// t.Setenv.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	root := t.TempDir()
	env := &Env{
		Root:        root,
		Home:        filepath.Join(root, "home"),
		BinDir:      filepath.Join(root, "home", ".local", "bin"),
		CacheDir:    filepath.Join(root, "cache", "getrelease"),
		DataDir:     filepath.Join(root, "home", ".local", "share", "getrelease"),
		MetadataDir: filepath.Join(root, "config", "getrelease"),
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(root, "home", ".local", "share"))

	for _, name := range []string{
		"GITHUB_TOKEN",
		"GITLAB_TOKEN",
		"GETRELEASE_LOG_LEVEL",
		"GETRELEASE_GITHUB_TOKEN",
		"GETRELEASE_GITLAB_TOKEN",
		"GETRELEASE_BIN_DIR",
		"GETRELEASE_CACHE_DIR",
		"GETRELEASE_DATA_DIR",
		"GETRELEASE_METADATA_DIR",
		"GETRELEASE_USER_AGENT",
	} {
		t.Setenv(name, "")
	}

	for _, dir := range []string{env.Home, env.BinDir, env.CacheDir, env.DataDir, env.MetadataDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
