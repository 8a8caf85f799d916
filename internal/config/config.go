package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the lens configuration
type Config struct {
	// Server is the authoritative peer's listener.
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Client is how this peer connects to a server.
	Client ClientConfig `json:"client" mapstructure:"client"`

	// Theme persistence and assets
	Theme ThemeConfig `json:"theme" mapstructure:"theme"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	Observability ObservabilityConfig `json:"observability" mapstructure:"observability"`

	// Owner namespaces tool bindings and labels.
	Owner string `json:"owner" mapstructure:"owner"`

	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host             string   `json:"host" mapstructure:"host"`
	Port             int      `json:"port" mapstructure:"port"`
	SharedSecret     string   `json:"shared_secret" mapstructure:"shared_secret"`
	HandshakeTimeout int      `json:"handshake_timeout" mapstructure:"handshake_timeout"` // seconds
	Admins           []string `json:"admins" mapstructure:"admins"`
	DisabledTools    []string `json:"disabled_tools" mapstructure:"disabled_tools"`
}

// ClientConfig holds client configuration
type ClientConfig struct {
	URL          string `json:"url" mapstructure:"url"`
	Peer         string `json:"peer" mapstructure:"peer"`
	SharedSecret string `json:"shared_secret" mapstructure:"shared_secret"`
	DialTimeout  int    `json:"dial_timeout" mapstructure:"dial_timeout"` // seconds
}

// ThemeConfig holds theme persistence configuration
type ThemeConfig struct {
	Store     string `json:"store" mapstructure:"store"` // yaml, sqlite
	Path      string `json:"path" mapstructure:"path"`
	Watch     bool   `json:"watch" mapstructure:"watch"`
	Autosave  string `json:"autosave" mapstructure:"autosave"` // cron spec, empty disables
	AssetRoot string `json:"asset_root" mapstructure:"asset_root"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// ObservabilityConfig holds audit and tracing configuration
type ObservabilityConfig struct {
	AuditLog string `json:"audit_log" mapstructure:"audit_log"`
	Tracing  bool   `json:"tracing" mapstructure:"tracing"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             7777,
			HandshakeTimeout: 10,
			Admins:           []string{},
			DisabledTools:    []string{},
		},
		Client: ClientConfig{
			URL:         "ws://127.0.0.1:7777/ws",
			DialTimeout: 10,
		},
		Theme: ThemeConfig{
			Store:    "yaml",
			Watch:    true,
			Autosave: "@every 5m",
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			Redaction: true,
		},
		Owner: "Lens",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Addr is the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateServer additionally checks what serving requires.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.SharedSecret == "" {
		return fmt.Errorf("server shared_secret is required")
	}
	return nil
}

// ValidateClient additionally checks what connecting requires.
func (c *Config) ValidateClient() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Client.URL == "" {
		return fmt.Errorf("client url is required")
	}
	if c.Client.SharedSecret == "" {
		return fmt.Errorf("client shared_secret is required")
	}
	return NewValidator().ValidatePeerName(c.Client.Peer)
}
