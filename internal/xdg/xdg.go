// Package xdg provides helpers to resolve XDG Base Directory paths for opensearchsql.
// Configuration lives under the config directory; the gateway log and other
// runtime state live under the state directory.
//
// The package falls back to the traditional locations when XDG environment
// variables are not set and creates both directories with private permissions.
package xdg

import (
	"os"
	"path/filepath"
)

// AppName is the directory name used under each XDG base directory.
const AppName = "opensearchsql"

// ConfigDir returns the XDG config directory for opensearchsql.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/opensearchsql when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return resolve("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for opensearchsql.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.local/state/opensearchsql when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return resolve("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func resolve(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, AppName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
