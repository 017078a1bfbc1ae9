package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/release"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/service"
	"github.com/ZebulonRouseFrantzich/getrelease/internal/testutil"
)

func TestCLI_InstallListUninstall(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	source := &memorySource{tags: map[string]*release.Tag{
		"acme/tool": publishRelease(t, "tool", "1.4.0"),
	}}
	a := testApp(t, source)
	t.Setenv("SHELL", "/bin/zsh")
	t.Setenv("PATH", "/usr/bin")

	stdout, _, err := run(t, a, "install", "acme/tool", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Installed acme/tool")
	assert.Contains(t, stdout, "checksum verified")
	assert.Contains(t, stdout, "is not on your PATH")
	assert.Contains(t, stdout, filepath.Join(env.Home, ".zshrc"))

	link := filepath.Join(env.BinDir, "tool")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(target))
	assert.Equal(t, "tool", filepath.Base(target))

	stdout, _, err = run(t, a, "ls", "--output", "json")
	require.NoError(t, err)
	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "acme/tool", entries[0].Name)
	assert.Equal(t, "v1.4.0", entries[0].Tag)
	assert.Equal(t, []string{"tool"}, entries[0].Symlinks)
	assert.True(t, entries[0].Verified)

	stdout, _, err = run(t, a, "rm", "acme/tool", "-y")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Uninstalled acme/tool")
	_, err = os.Lstat(link)
	assert.True(t, os.IsNotExist(err))

	stdout, _, err = run(t, a, "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Nothing installed.")
}

func TestCLI_InstallRequiresConfirmationWithoutTerminal(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	source := &memorySource{tags: map[string]*release.Tag{
		"acme/tool": publishRelease(t, "tool", "1.4.0"),
	}}

	_, _, err := run(t, testApp(t, source), "install", "acme/tool")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrConfirmationRequired))

	entries, err := os.ReadDir(env.BinDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCLI_InstallDownloadOnly(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	source := &memorySource{tags: map[string]*release.Tag{
		"acme/tool": publishRelease(t, "tool", "2.0.0"),
	}}

	stdout, _, err := run(t, testApp(t, source), "install", "acme/tool", "-y", "-d")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Downloaded")

	_, err = os.Stat(filepath.Join(env.CacheDir, "tool-2.0.0-linux-amd64.tar.gz"))
	require.NoError(t, err)
	_, err = os.Lstat(filepath.Join(env.BinDir, "tool"))
	assert.True(t, os.IsNotExist(err))
}

func TestCLI_TagAndURLAreExclusive(t *testing.T) {
	testutil.SetupTestEnv(t)
	_, _, err := run(t, testApp(t, &memorySource{}), "install", "acme/tool", "-t", "v1", "-u", "https://example.com/tool")
	require.Error(t, err)
}

func TestCLI_UpgradeUpToDate(t *testing.T) {
	testutil.SetupTestEnv(t)
	source := &memorySource{tags: map[string]*release.Tag{
		"acme/tool": publishRelease(t, "tool", "1.4.0"),
	}}
	a := testApp(t, source)

	_, _, err := run(t, a, "install", "acme/tool", "-y")
	require.NoError(t, err)

	stdout, _, err := run(t, a, "update", "acme/tool")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acme/tool is up to date (1.4.0)")

	stdout, _, err = run(t, a, "update-all")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Up to date: acme/tool")
}

func TestCLI_UninstallNotInstalled(t *testing.T) {
	testutil.SetupTestEnv(t)
	stdout, _, err := run(t, testApp(t, &memorySource{}), "uninstall", "acme/missing")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acme/missing is not installed")
}

func TestCLI_Info(t *testing.T) {
	testutil.SetupTestEnv(t)
	source := &memorySource{tags: map[string]*release.Tag{"acme/tool": {Name: "v1"}}}

	stdout, _, err := run(t, testApp(t, source), "info", "https://github.com/acme/tool")
	require.NoError(t, err)
	assert.Contains(t, stdout, "acme/tool")
	assert.Contains(t, stdout, "12,345")
	assert.Contains(t, stdout, "cli, tools")

	_, _, err = run(t, testApp(t, source), "info", "acme/unknown")
	require.Error(t, err)
	assert.True(t, errors.Is(err, release.ErrNotFound))

	_, _, err = run(t, testApp(t, source), "info", "no-slash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, release.ErrInvalidIdentity))
}

func TestCLI_InvalidConfigExitCode(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("GETRELEASE_LOG_LEVEL", "loud")

	_, _, err := run(t, testApp(t, &memorySource{}), "list")
	require.Error(t, err)
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitConfig, exitErr.Code)
}

func TestRootCommand_Aliases(t *testing.T) {
	root := newRootCommand(newApp())

	tests := []struct {
		alias string
		want  string
	}{
		{"ls", "list"},
		{"update", "upgrade"},
		{"update-all", "upgrade-all"},
		{"remove", "uninstall"},
		{"rm", "uninstall"},
	}
	for _, tt := range tests {
		t.Run(tt.alias, func(t *testing.T) {
			assert.Equal(t, tt.want, findCommand(t, root, tt.alias).Name())
		})
	}
}

func TestRootCommand_InstallFlags(t *testing.T) {
	install := findCommand(t, newRootCommand(newApp()), "install")

	for _, short := range []string{"t", "u", "y", "d"} {
		assert.NotNil(t, install.Flags().ShorthandLookup(short), "missing -%s", short)
	}
	for _, name := range []string{"asset-pattern", "bin-pattern", "symlink-alias"} {
		assert.NotNil(t, install.Flags().Lookup(name), "missing --%s", name)
	}
	assert.Equal(t, release.TagLatest, install.Flags().Lookup("tag").DefValue)
}

func TestApp_Level(t *testing.T) {
	tests := []struct {
		name    string
		quiet   bool
		verbose bool
		want    string
	}{
		{"configured", false, false, "warn"},
		{"quiet", true, false, "error"},
		{"verbose", false, true, "debug"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &app{quiet: tt.quiet, verbose: tt.verbose}
			assert.Equal(t, tt.want, a.level("warn"))
		})
	}
}
