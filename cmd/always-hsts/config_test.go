package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config, err := getConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), config)
}

func TestConfigFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`
port: 9090
db: memory
preload: preload.yaml
preloadTimeOffset: 24h
`), 0o644))

	config, err := getConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Port:              9090,
		DB:                "memory",
		Preload:           "preload.yaml",
		PreloadTimeOffset: 24 * time.Hour,
		SweepInterval:     time.Minute,
	}, config)
}

func TestConfigEnvironmentOverridesFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(filename, []byte("port: 9090\ndb: file.db\n"), 0o644))
	t.Setenv("ALWAYS_HSTS_PORT", "7070")
	t.Setenv("ALWAYS_HSTS_DISABLE_PRELOAD_LIST", "true")
	t.Setenv("ALWAYS_HSTS_SWEEP_INTERVAL", "5s")

	config, err := getConfig(filename)
	require.NoError(t, err)
	assert.Equal(t, 7070, config.Port)
	assert.Equal(t, "file.db", config.DB)
	assert.True(t, config.DisablePreloadList)
	assert.Equal(t, 5*time.Second, config.SweepInterval)
}

func TestInvalidConfig(t *testing.T) {
	_, err := getConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv("ALWAYS_HSTS_PORT", "-1")
	_, err = getConfig("")
	assert.Error(t, err)
}

func TestCheckHeader(t *testing.T) {
	var out strings.Builder
	assert.True(t, checkHeader(&out, " max-age = 100 ; includeSubDomains; preload"))
	assert.Contains(t, out.String(), "max-age=100; includeSubDomains")
	assert.Contains(t, out.String(), "preload")

	out.Reset()
	assert.False(t, checkHeader(&out, "max-age=100 bar"))
	assert.Contains(t, out.String(), "offset 12")
}
