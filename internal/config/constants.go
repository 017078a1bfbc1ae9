package config

// AppName names the per-application XDG subdirectories.
const AppName = "getrelease"

// FileName is the Lua configuration file inside the metadata directory.
const FileName = "config.lua"

// DefaultUserAgent is sent with every HTTP request unless overridden.
const DefaultUserAgent = "getrelease/1.0"

// Lua schema field names and globals
const (
	luaGlobal       = "getrelease"
	keyLogLevel     = "log_level"
	keyGitHubToken  = "github_token"
	keyGitLabToken  = "gitlab_token"
	keyBinDir       = "bin_dir"
	keyCacheDir     = "cache_dir"
	keyDataDir      = "data_dir"
	keyMetadataDir  = "metadata_dir"
	keyUserAgent    = "user_agent"
	envPrefix       = "GETRELEASE"
	envGitHubToken  = "GITHUB_TOKEN"
	envGitLabToken  = "GITLAB_TOKEN"
	fileMode        = 0o600
	directoryMode   = 0o755
	tmpFileSuffix   = ".tmp"
)

// keys lists every configuration field in generation order.
var keys = []string{
	keyLogLevel,
	keyGitHubToken,
	keyGitLabToken,
	keyBinDir,
	keyCacheDir,
	keyDataDir,
	keyMetadataDir,
	keyUserAgent,
}

// LogLevels lists the accepted log_level values.
var LogLevels = []string{"debug", "info", "warn", "error"}
