package daemon

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/harun/lens/internal/config"
	"github.com/harun/lens/internal/logger"
	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/protocol"
	"github.com/harun/lens/pkg/store"
	"github.com/harun/lens/pkg/suite"
	"github.com/harun/lens/pkg/theme"
	"github.com/harun/lens/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "s3cret"

func init() {
	observability.SetAuditLogger(observability.NewAuditLogger(io.Discard))
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dir
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Server.SharedSecret = testSecret
	cfg.Client.SharedSecret = testSecret
	cfg.Client.Peer = "alice"
	cfg.Theme.Path = filepath.Join(dir, "settings.yaml")
	cfg.Theme.AssetRoot = filepath.Join(dir, "assets")
	cfg.Theme.Watch = false
	cfg.Theme.Autosave = ""
	return cfg
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestNew_Validation(t *testing.T) {
	log := testLogger(t)

	_, err := New(testConfig(t), log, Mode("relay"))
	assert.Error(t, err)

	cfg := testConfig(t)
	cfg.Server.SharedSecret = ""
	_, err = New(cfg, log, ModeServer)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Client.Peer = ""
	_, err = New(cfg, log, ModeClient)
	assert.Error(t, err)
}

func TestDaemon_ServerStartStop(t *testing.T) {
	cfg := testConfig(t)
	d, err := New(cfg, testLogger(t), ModeServer)
	require.NoError(t, err)

	assert.False(t, d.Status().Running)
	assert.Error(t, d.Stop(), "stopping before start")

	require.NoError(t, d.Start())
	assert.Error(t, d.Start(), "already running")

	status := d.Status()
	assert.True(t, status.Running)
	assert.Equal(t, ModeServer, status.Mode)

	pid, err := ReadPID(d.Lifecycle().PIDFile())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	health := fmt.Sprintf("http://%s/healthz", cfg.Addr())
	require.Eventually(t, func() bool {
		resp, err := http.Get(health)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, d.Stop())
	assert.False(t, d.Status().Running)
	assert.NoFileExists(t, d.Lifecycle().PIDFile())

	data, err := os.ReadFile(cfg.Theme.Path)
	require.NoError(t, err, "theme is saved on stop")
	assert.Contains(t, string(data), theme.SectionKey)
}

func TestDaemon_ServerSeedsPermissions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Admins = []string{"alice"}
	cfg.Server.DisabledTools = []string{"Godmode", "Missing"}

	d, err := New(cfg, testLogger(t), ModeServer)
	require.NoError(t, err)

	perms := d.Peer().Permissions()
	assert.True(t, perms.IsAdmin("alice"))
	assert.False(t, perms.IsAdmin("bob"))
	assert.False(t, perms.ToolEnabled("Godmode"))
	assert.True(t, perms.ToolEnabled("NoClip"))
	assert.True(t, perms.CanUse("alice", "Godmode"))
	assert.False(t, perms.CanUse("bob", "Godmode"))

	// The server's operator is never gated.
	assert.True(t, d.Suite().Tools().Allowed("Godmode"))
}

func TestDaemon_RestoresTheme(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	s, err := suite.New(suite.Config{Logger: zerolog.Nop()})
	require.NoError(t, err)
	require.NoError(t, theme.UseBox[*theme.GlassBoxes](s.Theme()))
	st := store.NewYAMLFile(cfg.Theme.Path)
	require.NoError(t, s.SaveTheme(ctx, st))
	want, err := s.Theme().BoxName()
	require.NoError(t, err)

	d, err := New(cfg, testLogger(t), ModeServer)
	require.NoError(t, err)

	got, err := d.Suite().Theme().BoxName()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDaemon_BrokenThemeFallsBackToDefaults(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.Theme.Path, []byte("Theme:\n  BoxTheme: 7\n"), 0644))

	d, err := New(cfg, testLogger(t), ModeServer)
	require.NoError(t, err)

	box, err := d.Suite().Theme().Box()
	require.NoError(t, err)
	assert.IsType(t, &theme.SimpleBoxes{}, box)
}

func TestDaemon_ClientMirrorsServerState(t *testing.T) {
	srv, err := transport.NewServer(transport.ServerConfig{SharedSecret: testSecret, Logger: zerolog.Nop()})
	require.NoError(t, err)

	perms := protocol.NewPermissions()
	perms.SetToolEnabled("NoClip", false)
	serverPeer, err := protocol.NewPeer(protocol.PeerConfig{
		Role:        protocol.RoleServer,
		Transport:   srv,
		Permissions: perms,
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	srv.Attach(serverPeer)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		_ = srv.Stop(context.Background())
		ts.Close()
	})

	cfg := testConfig(t)
	cfg.Client.URL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	d, err := New(cfg, testLogger(t), ModeClient)
	require.NoError(t, err)
	require.NoError(t, d.Start())

	assert.FileExists(t, PIDFile(cfg.DataDir, ModeClient))

	tools := d.Suite().Tools()
	require.Eventually(t, func() bool {
		return !tools.Allowed("NoClip")
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, tools.Allowed("Godmode"))

	require.Eventually(t, func() bool {
		return d.Peer().Roster().Has("alice")
	}, 2*time.Second, 20*time.Millisecond)
	assert.Len(t, srv.Peers(), 1)

	require.NoError(t, d.Stop())
	assert.NoFileExists(t, PIDFile(cfg.DataDir, ModeClient))
}

func TestDaemon_ClientDialFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Client.URL = "ws://127.0.0.1:" + strconv.Itoa(freePort(t)) + "/ws"
	cfg.Client.DialTimeout = 1

	d, err := New(cfg, testLogger(t), ModeClient)
	require.NoError(t, err)

	assert.Error(t, d.Start())
	assert.False(t, d.Status().Running)
	assert.NoFileExists(t, PIDFile(cfg.DataDir, ModeClient))
}
