package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bamsammich/rdd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	configDir := filepath.Join(dir, "rdd")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(content), 0o644))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Nil(t, cfg.Defaults.Verify)
	assert.Nil(t, cfg.Defaults.BlockSize)
	assert.Nil(t, cfg.Theme.Green)
}

func TestLoad_FullConfig(t *testing.T) {
	writeConfig(t, `
[defaults]
bs = "4M"
hash = "both"
conv = "fsync"
direct = true
verify = true
queue = 16
retries = 3
bwlimit = "100MB"
progress_interval = "500ms"
iouring = false

[theme]
green = "#00ff00"
red = "#ff0000"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	d := cfg.Defaults
	require.NotNil(t, d.BlockSize)
	assert.Equal(t, "4M", *d.BlockSize)
	require.NotNil(t, d.Hash)
	assert.Equal(t, "both", *d.Hash)
	require.NotNil(t, d.Conv)
	assert.Equal(t, "fsync", *d.Conv)
	require.NotNil(t, d.Direct)
	assert.True(t, *d.Direct)
	require.NotNil(t, d.Verify)
	assert.True(t, *d.Verify)
	require.NotNil(t, d.Queue)
	assert.Equal(t, 16, *d.Queue)
	require.NotNil(t, d.Retries)
	assert.Equal(t, 3, *d.Retries)
	require.NotNil(t, d.BWLimit)
	assert.Equal(t, "100MB", *d.BWLimit)
	require.NotNil(t, d.ProgressInterval)
	assert.Equal(t, "500ms", *d.ProgressInterval)
	require.NotNil(t, d.IOURing)
	assert.False(t, *d.IOURing)

	require.NotNil(t, cfg.Theme.Green)
	assert.Equal(t, "#00ff00", *cfg.Theme.Green)
	require.NotNil(t, cfg.Theme.Red)
	assert.Equal(t, "#ff0000", *cfg.Theme.Red)

	// Unset fields should remain nil.
	assert.Nil(t, cfg.Theme.Muted)
	assert.Nil(t, cfg.Theme.Bright)
}

func TestLoad_PartialConfig(t *testing.T) {
	writeConfig(t, `
[theme]
bright = "#ffffff"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Nil(t, cfg.Defaults.Verify)
	assert.Nil(t, cfg.Defaults.Queue)
	require.NotNil(t, cfg.Theme.Bright)
	assert.Equal(t, "#ffffff", *cfg.Theme.Bright)
}

func TestLoad_InvalidTOML(t *testing.T) {
	writeConfig(t, "invalid [[[")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_UnknownKey(t *testing.T) {
	writeConfig(t, `
[defaults]
blocksize = "1M"
`)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defaults.blocksize")
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/rdd/config.toml", config.Path())
}
