// Package daemon runs a lens peer: the tool suite with its persisted theme,
// plus either the authoritative server or a client connection to one.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/harun/lens/internal/config"
	"github.com/harun/lens/internal/logger"
	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/internal/tracing"
	"github.com/harun/lens/pkg/protocol"
	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/store"
	"github.com/harun/lens/pkg/suite"
	"github.com/harun/lens/pkg/theme"
	"github.com/harun/lens/pkg/transport"
	"github.com/rs/zerolog"
)

// Mode selects which side of the protocol the daemon runs.
type Mode string

const (
	ModeServer Mode = "server"
	ModeClient Mode = "client"
)

// Status describes a running daemon
type Status struct {
	Mode      Mode
	Running   bool
	StartTime time.Time
	Uptime    time.Duration
	Peers     int
}

// Daemon represents the lens daemon service
type Daemon struct {
	config *config.Config
	log    *logger.Logger
	logger zerolog.Logger
	mode   Mode

	suite     *suite.Suite
	store     store.Store
	server    *transport.Server
	client    *transport.Client
	peer      *protocol.Peer
	watcher   *theme.Watcher
	autosave  *Autosave
	lifecycle *LifecycleManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex

	tracingEnabled bool
}

// New creates a daemon in mode. Nothing listens or connects until Start.
func New(cfg *config.Config, log *logger.Logger, mode Mode) (*Daemon, error) {
	switch mode {
	case ModeServer:
		if err := cfg.ValidateServer(); err != nil {
			return nil, fmt.Errorf("invalid server configuration: %w", err)
		}
	case ModeClient:
		if err := cfg.ValidateClient(); err != nil {
			return nil, fmt.Errorf("invalid client configuration: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown daemon mode: %q", mode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		config:    cfg,
		log:       log,
		logger:    log.Zerolog().With().Str("component", "daemon").Str("mode", string(mode)).Logger(),
		mode:      mode,
		ctx:       ctx,
		cancel:    cancel,
		lifecycle: NewLifecycleManager(cfg.DataDir, mode),
	}

	observability.EnsureRegistered()
	if cfg.Observability.Tracing {
		if err := tracing.InitOpenTelemetry("lens-" + string(mode)); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to initialize tracing, continuing without distributed tracing")
		} else {
			d.tracingEnabled = true
		}
	}

	if err := d.initialize(); err != nil {
		d.release()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) initialize() error {
	if path := d.config.Observability.AuditLog; path != "" {
		if err := observability.InitAuditLogger(path); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to initialize audit logger, using default stderr")
		} else {
			d.logger.Info().Str("path", path).Msg("Audit logger initialized")
		}
	}

	s, err := suite.New(suite.Config{
		Owner:  d.config.Owner,
		Loader: render.FileLoader{Root: d.config.Theme.AssetRoot},
		OpenPanel: func(panel string) {
			d.logger.Info().Str("panel", panel).Msg("Open panel")
		},
		Logger: d.log.Zerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create tool suite: %w", err)
	}
	d.suite = s

	if err := os.MkdirAll(filepath.Dir(d.config.Theme.Path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	st, err := store.Open(d.config.Theme.Store, d.config.Theme.Path)
	if err != nil {
		return fmt.Errorf("failed to open theme store: %w", err)
	}
	d.store = st

	if err := d.suite.LoadTheme(d.ctx, d.store); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to restore theme, using defaults")
		if err := d.suite.Theme().ApplyDefaults(); err != nil {
			return err
		}
	}

	if d.mode == ModeServer {
		if err := d.initializeServer(); err != nil {
			return err
		}
	}

	if spec := d.config.Theme.Autosave; spec != "" {
		autosave, err := NewAutosave(spec, d.saveTheme, d.log.Zerolog())
		if err != nil {
			return err
		}
		d.autosave = autosave
	}

	// Only the hand-editable YAML file is watched.
	if d.config.Theme.Watch && d.config.Theme.Store != "sqlite" {
		w, err := theme.NewWatcher(theme.WatcherConfig{
			Path:   d.config.Theme.Path,
			Reload: d.reloadTheme,
			Logger: d.log.Zerolog(),
		})
		if err != nil {
			return fmt.Errorf("failed to create theme watcher: %w", err)
		}
		d.watcher = w
	}

	return nil
}

func (d *Daemon) initializeServer() error {
	server, err := transport.NewServer(transport.ServerConfig{
		Addr:             d.config.Addr(),
		SharedSecret:     d.config.Server.SharedSecret,
		HandshakeTimeout: time.Duration(d.config.Server.HandshakeTimeout) * time.Second,
		Logger:           d.log.Zerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	perms := protocol.NewPermissions()
	for _, admin := range d.config.Server.Admins {
		perms.SetAdmin(admin, true)
	}
	for _, key := range d.config.Server.DisabledTools {
		if !d.suite.Tools().Has(key) {
			d.logger.Warn().Str("tool", key).Msg("Disabled tool is not registered")
		}
		perms.SetToolEnabled(key, false)
	}

	peer, err := protocol.NewPeer(protocol.PeerConfig{
		Role:        protocol.RoleServer,
		Transport:   server,
		Tools:       d.suite.Tools(),
		Permissions: perms,
		Logger:      d.log.Zerolog(),
	})
	if err != nil {
		return err
	}

	d.server = server
	d.peer = peer
	d.suite.AttachPeer(peer)
	return nil
}

func (d *Daemon) startClient() error {
	dialCtx, cancel := context.WithTimeout(d.ctx, time.Duration(d.config.Client.DialTimeout)*time.Second)
	defer cancel()

	client, err := transport.Dial(dialCtx, transport.ClientConfig{
		URL:          d.config.Client.URL,
		Peer:         d.config.Client.Peer,
		SharedSecret: d.config.Client.SharedSecret,
		DialTimeout:  time.Duration(d.config.Client.DialTimeout) * time.Second,
		Logger:       d.log.Zerolog(),
	})
	if err != nil {
		return err
	}

	peer, err := protocol.NewPeer(protocol.PeerConfig{
		Role:      protocol.RoleClient,
		Name:      d.config.Client.Peer,
		Transport: client,
		Tools:     d.suite.Tools(),
		Logger:    d.log.Zerolog(),
	})
	if err != nil {
		client.Close()
		return err
	}

	d.client = client
	d.peer = peer
	d.suite.AttachPeer(peer)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := client.Run(d.ctx, peer); err != nil {
			d.logger.Error().Err(err).Msg("Server connection lost")
		}
		d.cancel()
	}()

	return peer.RequestToolData(d.ctx)
}

// Start starts the daemon service
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	logger := d.logger.With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Starting lens daemon")

	if err := d.start(); err != nil {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
		return err
	}

	logger.Info().Int("tools", d.suite.Tools().Len()).Msg("Daemon started")
	return nil
}

func (d *Daemon) start() error {
	if err := d.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	switch d.mode {
	case ModeServer:
		d.server.Attach(d.peer)
		if err := d.server.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case ModeClient:
		if err := d.startClient(); err != nil {
			_ = d.lifecycle.Stop()
			return fmt.Errorf("failed to connect: %w", err)
		}
	}

	if d.watcher != nil {
		if err := d.watcher.Start(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to start theme watcher")
		}
	}
	if d.autosave != nil {
		d.autosave.Start()
	}
	return nil
}

// Stop stops the daemon service gracefully, saving the theme one last time.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is not running")
	}
	d.running = false
	d.mu.Unlock()

	logger := d.logger.With().Str("trace_id", tracing.NewTraceID()).Logger()
	logger.Info().Msg("Stopping lens daemon")

	if d.autosave != nil {
		d.autosave.Stop()
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop theme watcher")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.saveTheme(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to save theme")
	}

	if d.server != nil {
		if err := d.server.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to stop server")
		}
	}
	if d.client != nil {
		if err := d.client.Close(); err != nil {
			logger.Debug().Err(err).Msg("Failed to close connection")
		}
	}

	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn().Msg("Timeout waiting for goroutines to stop")
	}

	if err := d.lifecycle.Stop(); err != nil {
		logger.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	d.release()
	logger.Info().Msg("Daemon stopped")
	return nil
}

// release frees what New acquired.
func (d *Daemon) release() {
	d.cancel()
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close theme store")
		}
		d.store = nil
	}
	if d.tracingEnabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := tracing.ShutdownOpenTelemetry(ctx); err != nil {
			d.logger.Error().Err(err).Msg("Failed to shutdown tracing")
		}
		cancel()
		d.tracingEnabled = false
	}
	if d.config.Observability.AuditLog != "" {
		if err := observability.GetAuditLogger().Close(); err != nil {
			d.logger.Error().Err(err).Msg("Failed to close audit logger")
		}
	}
}

func (d *Daemon) saveTheme(ctx context.Context) error {
	if d.store == nil {
		return fmt.Errorf("theme store is closed")
	}
	return d.suite.SaveTheme(ctx, d.store)
}

func (d *Daemon) reloadTheme() error {
	ctx, cancel := context.WithTimeout(d.ctx, 5*time.Second)
	defer cancel()
	return d.suite.LoadTheme(ctx, d.store)
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Mode:    d.mode,
		Running: d.running,
	}
	if d.running {
		status.StartTime = d.startTime
		status.Uptime = time.Since(d.startTime)
		if d.server != nil {
			status.Peers = len(d.server.Peers())
		}
	}
	return status
}

// Wait blocks until SIGINT, SIGTERM or a lost server connection, then stops
// the daemon.
func (d *Daemon) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		d.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	case <-d.ctx.Done():
	}

	if err := d.Stop(); err != nil {
		d.logger.Error().Err(err).Msg("Failed to stop daemon")
	}
}

func (d *Daemon) Config() *config.Config       { return d.config }
func (d *Daemon) Mode() Mode                   { return d.mode }
func (d *Daemon) Suite() *suite.Suite          { return d.suite }
func (d *Daemon) Peer() *protocol.Peer         { return d.peer }
func (d *Daemon) Server() *transport.Server    { return d.server }
func (d *Daemon) Lifecycle() *LifecycleManager { return d.lifecycle }

