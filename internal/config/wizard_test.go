package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizard_Run(t *testing.T) {
	input := strings.Join([]string{
		"abc",    // invalid port
		"8000",   // port
		"",       // empty secret rejected
		"s3cret", // secret
		"server", // reserved
		"alice",  // peer
		"sqlite", // store
		"",       // keep level
	}, "\n") + "\n"

	var out bytes.Buffer
	cfg, err := NewWizardIO(strings.NewReader(input), &out).Run(nil)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.SharedSecret)
	assert.Equal(t, "s3cret", cfg.Client.SharedSecret)
	assert.Equal(t, "alice", cfg.Client.Peer)
	assert.Equal(t, "sqlite", cfg.Theme.Store)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Contains(t, out.String(), "Configuration complete!")
	assert.Contains(t, out.String(), "reserved")
}

func TestWizard_EOF(t *testing.T) {
	_, err := NewWizardIO(strings.NewReader(""), &bytes.Buffer{}).Run(nil)
	assert.Error(t, err)
}
