package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// ServerPeerName is reserved for the server side of the protocol.
const ServerPeerName = "server"

var peerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,32}$`)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if slices.Contains(validLevels, level) {
		return nil
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}

// ValidateStore validates the theme store backend
func (v *Validator) ValidateStore(backend string) error {
	switch backend {
	case "yaml", "sqlite":
		return nil
	default:
		return fmt.Errorf("invalid theme store: %s (must be one of: yaml, sqlite)", backend)
	}
}

// ValidateSchedule validates a cron spec. Empty disables the schedule.
func (v *Validator) ValidateSchedule(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid autosave schedule %q: %w", spec, err)
	}
	return nil
}

// ValidatePeerName validates a client peer name
func (v *Validator) ValidatePeerName(name string) error {
	if name == "" {
		return fmt.Errorf("peer name cannot be empty")
	}
	if name == ServerPeerName {
		return fmt.Errorf("peer name %q is reserved", name)
	}
	if !peerNamePattern.MatchString(name) {
		return fmt.Errorf("invalid peer name %q (letters, digits, '.', '_' or '-', at most 32)", name)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, err)
	}
	if cfg.Server.HandshakeTimeout < 0 {
		errors = append(errors, fmt.Errorf("handshake timeout cannot be negative"))
	}
	if err := v.ValidateStore(cfg.Theme.Store); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSchedule(cfg.Theme.Autosave); err != nil {
		errors = append(errors, err)
	}
	for _, admin := range cfg.Server.Admins {
		if err := v.ValidatePeerName(admin); err != nil {
			errors = append(errors, fmt.Errorf("admin %q: %w", admin, err))
		}
	}
	if cfg.Client.Peer != "" {
		if err := v.ValidatePeerName(cfg.Client.Peer); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}
