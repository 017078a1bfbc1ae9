package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/ZebulonRouseFrantzich/getrelease/internal/platform"
	"github.com/spf13/viper"
)

// LoadOptions controls Load.
type LoadOptions struct {
	// File overrides the config file location. Empty means
	// <metadata_dir>/config.lua using the default or environment metadata_dir.
	File string
	// Overrides are applied with the highest precedence. Empty values are
	// ignored.
	Overrides map[string]string
	// Detector feeds the platform table of the Lua file. May be nil.
	Detector platform.Detector
}

// Load resolves the effective configuration: defaults, then the Lua file if
// it exists, then the environment, then overrides.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	defaults, err := Defaults()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults.values() {
		v.SetDefault(k, val)
	}
	// tokens have no default but must still be known keys
	v.SetDefault(keyGitHubToken, "")
	v.SetDefault(keyGitLabToken, "")

	for _, k := range keys {
		envs := []string{k, envPrefix + "_" + strings.ToUpper(k)}
		switch k {
		case keyGitHubToken:
			envs = append(envs, envGitHubToken)
		case keyGitLabToken:
			envs = append(envs, envGitLabToken)
		}
		if err := v.BindEnv(envs...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	file := opts.File
	if file == "" {
		metadataDir, err := expandHome(v.GetString(keyMetadataDir))
		if err != nil {
			return nil, err
		}
		file = (&Config{MetadataDir: metadataDir}).File()
	}

	fileCfg, err := NewParser(opts.Detector).ParseFile(ctx, file)
	switch {
	case err == nil:
		if err := v.MergeConfigMap(fileCfg.values()); err != nil {
			return nil, fmt.Errorf("merge config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// no file: defaults and environment only
	default:
		return nil, fmt.Errorf("load %s: %w", file, err)
	}

	for k, val := range opts.Overrides {
		if val != "" {
			v.Set(k, val)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	for _, p := range []*string{&cfg.BinDir, &cfg.CacheDir, &cfg.DataDir, &cfg.MetadataDir} {
		expanded, err := expandHome(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// EnsureDirs creates the cache, data, bin and metadata directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.CacheDir, c.DataDir, c.BinDir, c.MetadataDir} {
		if err := os.MkdirAll(dir, directoryMode); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
