// Package config loads getrelease settings.
//
// Settings are layered with viper, lowest precedence first:
//   - XDG-derived defaults
//   - the Lua configuration file (<metadata_dir>/config.lua)
//   - GETRELEASE_* environment variables, plus GITHUB_TOKEN and GITLAB_TOKEN
//   - explicit overrides supplied by the caller (command-line flags)
//
// The Lua file runs in a sandboxed gopher-lua VM with the platform
// fingerprint injected as a read-only "platform" table, so a file can pick
// values per machine:
//
//	getrelease = {
//	  log_level = "info",
//	  bin_dir = platform.when(platform.is_macos, "~/bin") or "~/.local/bin",
//	}
//
// The resolved Config is passed explicitly to every component that needs it;
// nothing reads global state after Load returns.
package config
