package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:7777", cfg.Addr())
	assert.Equal(t, "yaml", cfg.Theme.Store)
	assert.Equal(t, "@every 5m", cfg.Theme.Autosave)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "Lens", cfg.Owner)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_String(t *testing.T) {
	s := DefaultConfig().String()
	assert.Contains(t, s, `"port": 7777`)
	assert.Contains(t, s, `"store": "yaml"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "invalid log level"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"bad store", func(c *Config) { c.Theme.Store = "redis" }, "invalid theme store"},
		{"bad schedule", func(c *Config) { c.Theme.Autosave = "whenever" }, "invalid autosave schedule"},
		{"reserved admin", func(c *Config) { c.Server.Admins = []string{"server"} }, "reserved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateServer(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.ValidateServer())

	cfg.Server.SharedSecret = "s3cret"
	assert.NoError(t, cfg.ValidateServer())
}

func TestConfig_ValidateClient(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Client.SharedSecret = "s3cret"
	assert.Error(t, cfg.ValidateClient(), "peer name is required")

	cfg.Client.Peer = "alice"
	assert.NoError(t, cfg.ValidateClient())

	cfg.Client.URL = ""
	assert.Error(t, cfg.ValidateClient())
}
