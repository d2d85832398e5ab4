// Package paths resolves slotsync's per-user directories.
//
// Resolution order:
// 1. SLOTSYNC_HOME (portable root) → $SLOTSYNC_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/slotsync
// 3. Platform defaults → ~/.config/slotsync, ~/.local/state/slotsync, ~/.cache/slotsync
package paths

import (
	"os"
	"path/filepath"
)

const appName = "slotsync"

// base picks the root for one kind of directory.
func base(homeSub, xdgVar string, fallback ...string) string {
	if home := os.Getenv("SLOTSYNC_HOME"); home != "" {
		return filepath.Join(home, homeSub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir holds the user-level slotsync.yml.
func ConfigDir() string {
	return base("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir holds logs and other runtime state.
func StateDir() string {
	return base("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir holds regenerable data such as profiles.
func CacheDir() string {
	return base("cache", "XDG_CACHE_HOME", ".cache")
}

// ConfigFile is the user-level config file, searched after the working
// directory tree.
func ConfigFile() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "slotsync.yml")
}

// LogFile is the file sink used when logging.file.enabled is set without a
// path.
func LogFile() string {
	dir := StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "slotsync.log")
}

// EnsureDirs creates all slotsync directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
