package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harun/lens/pkg/protocol"
	"github.com/rs/zerolog"
)

// Receiver consumes frames arriving from the server.
type Receiver interface {
	Receive(ctx context.Context, from string, data []byte) error
}

// ClientConfig holds client configuration
type ClientConfig struct {
	URL          string
	Peer         string
	SharedSecret string
	DialTimeout  time.Duration
	Logger       zerolog.Logger
}

// Client is a peer's connection to the server. It implements
// protocol.Transport; every message goes to the server.
type Client struct {
	peer   string
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the server at cfg.URL and completes the handshake.
func Dial(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.Peer == "" {
		return nil, fmt.Errorf("peer name is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.URL, err)
	}

	if err := clientHandshake(conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	logger := cfg.Logger.With().Str("component", "transport").Str("peer", cfg.Peer).Logger()
	logger.Info().Str("url", cfg.URL).Msg("Connected to lens server")
	return &Client{peer: cfg.Peer, conn: conn, logger: logger}, nil
}

func clientHandshake(conn *websocket.Conn, cfg ClientConfig) error {
	_ = conn.SetReadDeadline(time.Now().Add(cfg.DialTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var challenge AuthChallenge
	if err := conn.ReadJSON(&challenge); err != nil {
		return fmt.Errorf("failed to read challenge: %w", err)
	}
	if challenge.Event != eventChallenge {
		return fmt.Errorf("unexpected handshake event %q", challenge.Event)
	}

	resp := AuthResponse{
		Method:    methodResponse,
		Peer:      cfg.Peer,
		Signature: NewAuthenticator(cfg.SharedSecret).Sign(challenge.Challenge),
	}
	if err := conn.WriteJSON(resp); err != nil {
		return fmt.Errorf("failed to send auth response: %w", err)
	}

	var result AuthResult
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("failed to read auth result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("authentication failed: %s", result.Message)
	}
	return nil
}

// Peer returns the local peer name
func (c *Client) Peer() string {
	return c.peer
}

// Send implements protocol.Transport. peer must be protocol.ServerPeerID.
func (c *Client) Send(_ context.Context, peer string, msg protocol.Message) error {
	if peer != protocol.ServerPeerID {
		return fmt.Errorf("clients can only send to the server, not %s", peer)
	}
	return c.write(msg)
}

// Broadcast implements protocol.Transport by handing msg to the server,
// which relays what it accepts.
func (c *Client) Broadcast(_ context.Context, msg protocol.Message, _ ...string) error {
	return c.write(msg)
}

func (c *Client) write(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Tag(), err)
	}
	return nil
}

// Run reads frames until ctx is done or the connection drops, handing each
// to r in order.
func (c *Client) Run(ctx context.Context, r Receiver) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if err := r.Receive(ctx, protocol.ServerPeerID, data); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to handle message")
		}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
