package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.NotNil(t, loader)
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "nonexistent.json")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, 7777, cfg.Server.Port)
		assert.Equal(t, filepath.Dir(configPath), cfg.DataDir)
		assert.Equal(t, filepath.Join(cfg.DataDir, "settings.yaml"), cfg.Theme.Path)
	})

	t.Run("load config from file", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		testConfig := `{
			"server": {"port": 9000, "shared_secret": "s3cret", "admins": ["alice"]},
			"theme": {"store": "sqlite"},
			"logging": {"level": "debug"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "s3cret", cfg.Server.SharedSecret)
		assert.Equal(t, []string{"alice"}, cfg.Server.Admins)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host, "unset keys keep defaults")
		assert.Equal(t, filepath.Join(cfg.DataDir, "settings.db"), cfg.Theme.Path)
	})

	t.Run("environment overrides", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{"server": {"port": 9000}}`), 0644))
		t.Setenv("LENS_SERVER_PORT", "9100")
		t.Setenv("LENS_CLIENT_PEER", "bob")

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "bob", cfg.Client.Peer)
	})

	t.Run("invalid json", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte(`{nope`), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "lens.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.Server.SharedSecret = "s3cret"
	cfg.Client.Peer = "alice"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", loaded.Server.SharedSecret)
	assert.Equal(t, "alice", loaded.Client.Peer)
}
