package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading from stdin
func NewWizard() *Wizard {
	return NewWizardIO(os.Stdin, os.Stdout)
}

// NewWizardIO creates a wizard over in and out
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{reader: bufio.NewReader(in), out: out}
}

// Run asks for the settings a first run needs, starting from base.
func (w *Wizard) Run(base *Config) (*Config, error) {
	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	fmt.Fprintln(w.out, "=== Lens Configuration Wizard ===")
	fmt.Fprintln(w.out)

	for {
		port, err := w.ask("Server port", strconv.Itoa(cfg.Server.Port))
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(port)
		if convErr == nil {
			convErr = validator.ValidatePort(n)
		}
		if convErr != nil {
			fmt.Fprintf(w.out, "Error: %v\n", convErr)
			continue
		}
		cfg.Server.Port = n
		break
	}

	for {
		secret, err := w.ask("Shared secret", cfg.Server.SharedSecret)
		if err != nil {
			return nil, err
		}
		if secret == "" {
			fmt.Fprintln(w.out, "Error: a shared secret is required")
			continue
		}
		cfg.Server.SharedSecret = secret
		cfg.Client.SharedSecret = secret
		break
	}

	for {
		peer, err := w.ask("Peer name for this machine", cfg.Client.Peer)
		if err != nil {
			return nil, err
		}
		if peer == "" {
			break
		}
		if err := validator.ValidatePeerName(peer); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Client.Peer = peer
		break
	}

	backend, err := w.ask("Theme store (yaml/sqlite)", cfg.Theme.Store)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateStore(backend); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Theme.Store)
	} else {
		cfg.Theme.Store = backend
	}

	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")
	return cfg, nil
}

func (w *Wizard) ask(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
