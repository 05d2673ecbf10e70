package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, 7, cfg.HorizonDays)

	// The default file was written with restrictive permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:9999"
	cfg.Timezone = "Europe/Berlin"
	cfg.HorizonDays = 14
	cfg.DBPath = "/tmp/tasks.db"
	cfg.BasicAuth = &BasicAuthConfig{Username: "ada", Password: "pw"}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", loaded.Listen)
	assert.Equal(t, "Europe/Berlin", loaded.Timezone)
	assert.Equal(t, 14, loaded.HorizonDays)
	assert.Equal(t, "/tmp/tasks.db", loaded.DBPath)
	require.NotNil(t, loaded.BasicAuth)
	assert.Equal(t, "ada", loaded.BasicAuth.Username)
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := &Config{WeekStart: "sunday"}
	cfg.Normalize()

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	// The grid builder is Monday-based; unsupported values fall back.
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "*/5 * * * *", cfg.RefreshCron)
	assert.Equal(t, 7, cfg.HorizonDays)
	assert.NotEmpty(t, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
