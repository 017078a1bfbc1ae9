package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Config holds every getrelease setting.
type Config struct {
	LogLevel    string `mapstructure:"log_level"`
	GitHubToken string `mapstructure:"github_token"`
	GitLabToken string `mapstructure:"gitlab_token"`
	BinDir      string `mapstructure:"bin_dir"`      // symlink destination directory
	CacheDir    string `mapstructure:"cache_dir"`    // download directory
	DataDir     string `mapstructure:"data_dir"`     // extraction directory
	MetadataDir string `mapstructure:"metadata_dir"` // install records and config.lua
	UserAgent   string `mapstructure:"user_agent"`
}

// Defaults returns the XDG-derived default configuration.
// The bin directory sits next to XDG_DATA_HOME, i.e. ~/.local/bin.
func Defaults() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cacheHome := xdgDir("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	configHome := xdgDir("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	dataHome := xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))

	return &Config{
		LogLevel:    "info",
		BinDir:      filepath.Join(filepath.Dir(dataHome), "bin"),
		CacheDir:    filepath.Join(cacheHome, AppName),
		DataDir:     filepath.Join(dataHome, AppName),
		MetadataDir: filepath.Join(configHome, AppName),
		UserAgent:   DefaultUserAgent,
	}, nil
}

func xdgDir(env, fallback string) string {
	if v := os.Getenv(env); v != "" && filepath.IsAbs(v) {
		return filepath.Clean(v)
	}
	return fallback
}

// File returns the path of the Lua configuration file.
func (c *Config) File() string {
	return filepath.Join(c.MetadataDir, FileName)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(LogLevels, strings.ToLower(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("log_level %q must be one of %s", c.LogLevel, strings.Join(LogLevels, ", ")))
	}

	dirs := []struct {
		name  string
		value string
	}{
		{keyBinDir, c.BinDir},
		{keyCacheDir, c.CacheDir},
		{keyDataDir, c.DataDir},
		{keyMetadataDir, c.MetadataDir},
	}
	for _, d := range dirs {
		if err := validatePath(d.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
		}
	}

	if c.DataDir != "" && filepath.Clean(c.DataDir) == filepath.Clean(c.BinDir) {
		errs = append(errs, errors.New("data_dir and bin_dir must differ"))
	}

	return errors.Join(errs...)
}

func validatePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return errors.New("path is empty")
	}
	if strings.ContainsRune(p, 0) {
		return errors.New("path contains a NUL byte")
	}
	if !filepath.IsAbs(p) {
		return fmt.Errorf("path %q is not absolute", p)
	}
	if filepath.Clean(p) == string(filepath.Separator) {
		return errors.New("path must not be the filesystem root")
	}
	return nil
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// get returns the value of a field by its key.
func (c *Config) get(key string) string {
	switch key {
	case keyLogLevel:
		return c.LogLevel
	case keyGitHubToken:
		return c.GitHubToken
	case keyGitLabToken:
		return c.GitLabToken
	case keyBinDir:
		return c.BinDir
	case keyCacheDir:
		return c.CacheDir
	case keyDataDir:
		return c.DataDir
	case keyMetadataDir:
		return c.MetadataDir
	case keyUserAgent:
		return c.UserAgent
	}
	return ""
}

// set assigns a field by its key, reporting unknown keys.
func (c *Config) set(key, value string) bool {
	switch key {
	case keyLogLevel:
		c.LogLevel = value
	case keyGitHubToken:
		c.GitHubToken = value
	case keyGitLabToken:
		c.GitLabToken = value
	case keyBinDir:
		c.BinDir = value
	case keyCacheDir:
		c.CacheDir = value
	case keyDataDir:
		c.DataDir = value
	case keyMetadataDir:
		c.MetadataDir = value
	case keyUserAgent:
		c.UserAgent = value
	default:
		return false
	}
	return true
}

// values returns the non-empty fields as a map keyed by field name.
func (c *Config) values() map[string]interface{} {
	m := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v := c.get(k); v != "" {
			m[k] = v
		}
	}
	return m
}
