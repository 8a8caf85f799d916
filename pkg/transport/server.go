// Package transport carries protocol messages between a lens server and its
// clients over websockets.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/protocol"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Handler consumes inbound traffic. The server calls it from a single
// goroutine, one event at a time.
type Handler interface {
	Receive(ctx context.Context, from string, data []byte) error
	PeerJoined(ctx context.Context, peer string) error
	PeerLeft(ctx context.Context, peer string) error
}

type eventKind int

const (
	eventFrame eventKind = iota
	eventJoined
	eventLeft
)

type inboundEvent struct {
	kind eventKind
	peer string
	data []byte
}

// Server accepts peer connections and implements protocol.Transport.
type Server struct {
	addr             string
	handshakeTimeout time.Duration
	auth             *Authenticator
	upgrader         websocket.Upgrader
	peers            *peerRegistry
	logger           zerolog.Logger

	server *http.Server
	inbox  chan inboundEvent
	done   chan struct{}
	newID  func() (string, error)

	mu             sync.RWMutex
	isShuttingDown bool
	cancel         context.CancelFunc
	wg             sync.WaitGroup
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Addr             string
	SharedSecret     string
	HandshakeTimeout time.Duration
	InboxSize        int
	Logger           zerolog.Logger
}

// NewServer creates a websocket server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.SharedSecret == "" {
		return nil, fmt.Errorf("shared secret is required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 256
	}

	return &Server{
		addr:             cfg.Addr,
		handshakeTimeout: cfg.HandshakeTimeout,
		auth:             NewAuthenticator(cfg.SharedSecret),
		peers:            newPeerRegistry(),
		logger:           cfg.Logger.With().Str("component", "transport").Logger(),
		inbox:            make(chan inboundEvent, cfg.InboxSize),
		done:             make(chan struct{}),
		newID:            func() (string, error) { return gonanoid.New() },
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}, nil
}

// Attach starts the goroutine that feeds inbound events to h. It must be
// called once before connections are accepted.
func (s *Server) Attach(h Handler) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx, h)
	}()
}

func (s *Server) dispatch(ctx context.Context, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.inbox:
			var err error
			switch ev.kind {
			case eventFrame:
				err = h.Receive(ctx, ev.peer, ev.data)
			case eventJoined:
				err = h.PeerJoined(ctx, ev.peer)
			case eventLeft:
				err = h.PeerLeft(ctx, ev.peer)
			}
			if err != nil {
				s.logger.Warn().Err(err).Str("peer", ev.peer).Msg("Failed to handle inbound event")
			}
		}
	}
}

// Handler returns the HTTP handler serving /ws, /metrics and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", observability.MetricsHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return mux
}

// Start listens on the configured address.
func (s *Server) Start() error {
	if s.addr == "" {
		return fmt.Errorf("listen address is required")
	}
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info().Str("addr", s.addr).Msg("Starting lens server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Lens server error")
		}
	}()
	return nil
}

// Stop closes every connection and shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isShuttingDown {
		close(s.done)
	}
	s.isShuttingDown = true
	cancel := s.cancel
	s.mu.Unlock()

	s.logger.Info().Msg("Shutting down lens server")

	for _, c := range s.peers.all() {
		c.conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	s.logger.Info().Msg("Lens server stopped")
	return nil
}

// Peers lists the authenticated connections
func (s *Server) Peers() []PeerInfo {
	return s.peers.info()
}

// Send implements protocol.Transport.
func (s *Server) Send(_ context.Context, peer string, msg protocol.Message) error {
	c, ok := s.peers.get(peer)
	if !ok {
		return fmt.Errorf("peer %s is not connected", peer)
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := c.write(data); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", msg.Tag(), peer, err)
	}
	return nil
}

// Broadcast implements protocol.Transport.
func (s *Server) Broadcast(_ context.Context, msg protocol.Message, except ...string) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	successCount := 0
	failureCount := 0
	for _, c := range s.peers.all() {
		if slices.Contains(except, c.peer) {
			continue
		}
		if err := c.write(data); err != nil {
			s.logger.Warn().
				Err(err).
				Str("peer", c.peer).
				Str("tag", msg.Tag()).
				Msg("Failed to broadcast to peer")
			failureCount++
		} else {
			successCount++
		}
	}

	s.logger.Debug().
		Str("tag", msg.Tag()).
		Int("success", successCount).
		Int("failed", failureCount).
		Msg("Broadcast complete")
	return nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	shuttingDown := s.isShuttingDown
	s.mu.RUnlock()
	if shuttingDown {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	connID, err := s.newID()
	if err != nil {
		s.logger.Error().Err(err).Str("ip", r.RemoteAddr).Msg("Failed to generate connection id")
		conn.Close()
		return
	}
	c := &connection{
		id:          connID,
		conn:        conn,
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}

	peer, err := s.handshake(c)
	if err != nil {
		s.logger.Warn().Err(err).Str("connId", connID).Str("ip", r.RemoteAddr).Msg("Handshake failed")
		observability.RecordSecurityAudit(r.Context(), "handshake", peer, "rejected", map[string]any{"ip": r.RemoteAddr})
		_ = c.writeJSON(AuthResult{Event: eventFailure, Message: err.Error()})
		conn.Close()
		return
	}
	c.peer = peer

	if prev := s.peers.add(c); prev != nil {
		s.logger.Info().Str("peer", peer).Str("connId", prev.id).Msg("Replacing stale connection")
		prev.conn.Close()
	}
	if err := c.writeJSON(AuthResult{Event: eventSuccess, Success: true}); err != nil {
		s.peers.remove(peer, connID)
		conn.Close()
		return
	}

	s.logger.Info().Str("peer", peer).Str("connId", connID).Str("ip", r.RemoteAddr).Msg("Peer connected")
	if !s.enqueue(inboundEvent{kind: eventJoined, peer: peer}) {
		conn.Close()
		return
	}

	go s.readLoop(c)
}

func (s *Server) handshake(c *connection) (string, error) {
	challenge, err := s.auth.GenerateChallenge()
	if err != nil {
		return "", err
	}
	if err := c.writeJSON(AuthChallenge{Event: eventChallenge, Challenge: challenge}); err != nil {
		return "", fmt.Errorf("failed to send challenge: %w", err)
	}

	_ = c.conn.SetReadDeadline(time.Now().Add(s.handshakeTimeout))
	var resp AuthResponse
	if err := c.conn.ReadJSON(&resp); err != nil {
		return "", fmt.Errorf("failed to read auth response: %w", err)
	}
	_ = c.conn.SetReadDeadline(time.Time{})

	if resp.Method != methodResponse {
		return resp.Peer, fmt.Errorf("unexpected handshake method %q", resp.Method)
	}
	if resp.Peer == "" || resp.Peer == protocol.ServerPeerID {
		return resp.Peer, fmt.Errorf("invalid peer name %q", resp.Peer)
	}
	if !s.auth.Verify(challenge, resp.Signature) {
		return resp.Peer, fmt.Errorf("invalid signature")
	}
	return resp.Peer, nil
}

func (s *Server) readLoop(c *connection) {
	defer func() {
		c.conn.Close()
		if s.peers.remove(c.peer, c.id) {
			s.logger.Info().Str("peer", c.peer).Str("connId", c.id).Msg("Peer disconnected")
			s.enqueue(inboundEvent{kind: eventLeft, peer: c.peer})
		}
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Error().Err(err).Str("peer", c.peer).Msg("WebSocket error")
			}
			return
		}
		if !s.enqueue(inboundEvent{kind: eventFrame, peer: c.peer, data: message}) {
			return
		}
	}
}

// enqueue hands ev to the dispatch goroutine unless the server is stopping.
func (s *Server) enqueue(ev inboundEvent) bool {
	s.mu.RLock()
	shuttingDown := s.isShuttingDown
	s.mu.RUnlock()
	if shuttingDown {
		return false
	}
	select {
	case s.inbox <- ev:
		return true
	case <-s.done:
		return false
	}
}
