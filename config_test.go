package livetable

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livetable.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultNodes, cfg.Nodes)
	assert.Equal(t, []string{DefaultCategory}, cfg.Sidecar.Categories)
	assert.Equal(t, ":8080", cfg.Web.Addr)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
nodes: 12
sidecar:
  url: ws://sidecar.example:10000/
  categories: [nodes, leases]
  reconnect_timeout: 2s
  read_timeout: 1m
web:
  addr: ":9090"
terminal: true
badges:
  other: "<b>?</b>"
`)
	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Nodes)
	assert.Equal(t, "ws://sidecar.example:10000/", cfg.Sidecar.URL)
	assert.Equal(t, []string{"nodes", "leases"}, cfg.Sidecar.Categories)
	assert.Equal(t, ":9090", cfg.Web.Addr)
	assert.True(t, cfg.Terminal)
	assert.Equal(t, "<b>?</b>", cfg.Badges["other"])

	settings := cfg.SidecarSettings()
	assert.Equal(t, 2*time.Second, settings.ReconnectTimeout)
	assert.Equal(t, time.Minute, settings.ReadTimeout)
	assert.Equal(t, DefaultSidecarSettings().WriteTimeout, settings.WriteTimeout)
}

func TestLoadFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "nodes: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Nodes)
	assert.Equal(t, Default().Sidecar, cfg.Sidecar)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeConfig(t, "nodes: [1, 2\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeConfig(t, "nodes: 0\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadFile(writeConfig(t, "sidecar:\n  categories: []\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(ConfigEnv, "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	t.Setenv(ConfigEnv, writeConfig(t, "nodes: 3\n"))
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Nodes)
}
