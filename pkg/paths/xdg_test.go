package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotsyncHomeWins(t *testing.T) {
	home := t.TempDir()
	t.Setenv("SLOTSYNC_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/ignored")

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "cache"), CacheDir())
	assert.Equal(t, filepath.Join(home, "config", "slotsync.yml"), ConfigFile())
	assert.Equal(t, filepath.Join(home, "state", "slotsync.log"), LogFile())

	require.NoError(t, EnsureDirs())
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestXDGVariables(t *testing.T) {
	t.Setenv("SLOTSYNC_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")

	assert.Equal(t, "/xdg/config/slotsync", ConfigDir())
	assert.Equal(t, "/xdg/state/slotsync", StateDir())
	assert.Equal(t, "/xdg/cache/slotsync", CacheDir())
}

func TestPlatformDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SLOTSYNC_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")

	assert.Equal(t, filepath.Join(home, ".config", "slotsync"), ConfigDir())
	assert.Equal(t, filepath.Join(home, ".local", "state", "slotsync"), StateDir())
	assert.Equal(t, filepath.Join(home, ".cache", "slotsync"), CacheDir())
}
