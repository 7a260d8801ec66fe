package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotEmpty(t, cfg.WorkspaceDir)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Zero(t, cfg.InitTime, "init time is set on first save, not construction")
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Config{
		WorkspaceDir: "/srv/sessions",
		Version:      "1.0",
	}
	require.NoError(t, cfg.SaveTo(path))

	// First save stamps the init time
	assert.NotZero(t, cfg.InitTime)

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.WorkspaceDir, loaded.WorkspaceDir)
	assert.Equal(t, cfg.Version, loaded.Version)
	assert.Equal(t, cfg.InitTime, loaded.InitTime)
}

func TestSaveToRestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "config file must be owner-only")
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFillsWorkspaceDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"1.0\"\n"), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkspaceDir(), cfg.WorkspaceDir)
}

func TestLoadFromRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workspace_dir: [unterminated"), 0o600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}
