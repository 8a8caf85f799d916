package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/internal/tracing"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/tool"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
)

// ServerPeerID is the name clients use to address the server.
const ServerPeerID = "server"

// Role is which side of the protocol a Peer plays.
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Transport delivers messages to other peers. Sends are fire-and-forget; an
// error only means the message was not handed to the connection.
type Transport interface {
	Send(ctx context.Context, peer string, msg Message) error
	Broadcast(ctx context.Context, msg Message, except ...string) error
}

// PeerConfig configures a Peer.
type PeerConfig struct {
	Role Role
	// Name is the local peer's stable name. Servers use ServerPeerID.
	Name        string
	Transport   Transport
	Tools       *tool.Registry
	Permissions *Permissions
	Roster      *Roster
	Logger      zerolog.Logger
}

// Peer dispatches inbound messages for one side of the protocol. Receive must
// be called from a single goroutine.
type Peer struct {
	role      Role
	name      string
	transport Transport
	tools     *tool.Registry
	perms     *Permissions
	roster    *Roster
	logger    zerolog.Logger
}

// NewPeer creates a dispatcher
func NewPeer(cfg PeerConfig) (*Peer, error) {
	if cfg.Role != RoleServer && cfg.Role != RoleClient {
		return nil, fmt.Errorf("invalid role: %q", cfg.Role)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}
	if cfg.Name == "" {
		if cfg.Role != RoleServer {
			return nil, fmt.Errorf("client peer name is required")
		}
		cfg.Name = ServerPeerID
	}
	if cfg.Permissions == nil {
		cfg.Permissions = NewPermissions()
	}
	if cfg.Roster == nil {
		cfg.Roster = NewRoster()
	}

	return &Peer{
		role:      cfg.Role,
		name:      cfg.Name,
		transport: cfg.Transport,
		tools:     cfg.Tools,
		perms:     cfg.Permissions,
		roster:    cfg.Roster,
		logger:    cfg.Logger.With().Str("component", "protocol").Str("role", string(cfg.Role)).Logger(),
	}, nil
}

func (p *Peer) Role() Role                { return p.role }
func (p *Peer) Name() string              { return p.name }
func (p *Peer) Permissions() *Permissions { return p.perms }
func (p *Peer) Roster() *Roster           { return p.roster }

// Receive decodes one frame from peer `from` and runs its handler. Unknown
// tags are dropped without error. Any other failure is confined to this
// message and returned for logging.
func (p *Peer) Receive(ctx context.Context, from string, data []byte) error {
	msg, err := Decode(data)
	if err != nil {
		if errors.Is(err, lenserr.ErrUnrecognizedMessageTag) {
			observability.RecordProtocolMessage(string(p.role), "unknown", "ignored")
			p.logger.Debug().Err(err).Str("from", from).Msg("Ignoring unrecognized message")
			return nil
		}
		observability.RecordProtocolMessage(string(p.role), "unknown", "error")
		return fmt.Errorf("message from %s: %w", from, err)
	}
	return p.Dispatch(ctx, from, msg)
}

// Dispatch runs the handler for an already decoded message.
func (p *Peer) Dispatch(ctx context.Context, from string, msg Message) (err error) {
	if msg == nil {
		return fmt.Errorf("nil message from %s", from)
	}
	ctx, span := tracing.StartMessageSpan(ctx, string(p.role), from, msg.Tag())
	defer span.End()
	logger := tracing.Logger(ctx, p.logger)

	status := "applied"
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Message handler failed")
			err = fmt.Errorf("handler for %s panicked: %v", msg.Tag(), rec)
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, lenserr.ErrUnauthorizedSender) {
				status = "rejected"
			} else {
				status = "error"
			}
		}
		observability.RecordProtocolMessage(string(p.role), msg.Tag(), status)
	}()

	if p.role == RoleServer {
		err = p.serverHandle(ctx, logger, from, msg)
	} else {
		var ignored bool
		ignored, err = p.clientHandle(ctx, logger, from, msg)
		if ignored {
			status = "ignored"
		}
	}
	return err
}

func (p *Peer) serverHandle(ctx context.Context, logger zerolog.Logger, from string, msg Message) error {
	switch m := msg.(type) {
	case ToolDataRequest:
		return p.sendState(ctx, from)

	case AdminUpdate, PlayerManagerSync:
		err := fmt.Errorf("%w: %s may not send %s", lenserr.ErrUnauthorizedSender, from, m.Tag())
		logger.Warn().Err(err).Msg("Rejected server-only message")
		observability.RecordSecurityAudit(ctx, "message:"+m.Tag(), from, "rejected", nil)
		return err

	case ToolPacket:
		if !p.perms.CanUse(from, m.Tool) {
			err := fmt.Errorf("%w: %s may not use %s", lenserr.ErrUnauthorizedSender, from, m.Tool)
			logger.Warn().Err(err).Msg("Rejected tool packet")
			observability.RecordSecurityAudit(ctx, "message:"+m.Tag(), from, "rejected", map[string]any{"tool": m.Tool})
			return err
		}
		if err := p.applyToolPacket(from, m); err != nil {
			return err
		}
		return p.transport.Broadcast(ctx, m, from)

	default:
		return fmt.Errorf("%w: %T", lenserr.ErrUnrecognizedMessageTag, msg)
	}
}

func (p *Peer) clientHandle(_ context.Context, logger zerolog.Logger, from string, msg Message) (bool, error) {
	switch m := msg.(type) {
	case AdminUpdate:
		if from != ServerPeerID {
			logger.Warn().Str("from", from).Msg("Ignoring AdminUpdate not sent by the server")
			return true, nil
		}
		p.perms.Apply(m.Snapshot)
		logger.Debug().Str("revision", m.Snapshot.Revision).Bool("admin", p.perms.IsAdmin(p.name)).Msg("Permissions updated")
		return false, nil

	case PlayerManagerSync:
		if from != ServerPeerID {
			logger.Warn().Str("from", from).Msg("Ignoring PlayerManagerSync not sent by the server")
			return true, nil
		}
		p.roster.Replace(m.Peers)
		return false, nil

	case ToolPacket:
		return false, p.applyToolPacket(from, m)

	case ToolDataRequest:
		logger.Debug().Str("from", from).Msg("Ignoring ToolDataRequest on a client")
		return true, nil

	default:
		return false, fmt.Errorf("%w: %T", lenserr.ErrUnrecognizedMessageTag, msg)
	}
}

func (p *Peer) applyToolPacket(from string, m ToolPacket) error {
	if p.tools == nil {
		return nil
	}
	return p.tools.HandlePacket(m.Tool, from, m.Data)
}

func (p *Peer) sendState(ctx context.Context, to string) error {
	if err := p.transport.Send(ctx, to, AdminUpdate{Snapshot: p.perms.Snapshot()}); err != nil {
		return fmt.Errorf("failed to send permissions to %s: %w", to, err)
	}
	if err := p.transport.Send(ctx, to, PlayerManagerSync{Peers: p.peerList()}); err != nil {
		return fmt.Errorf("failed to send roster to %s: %w", to, err)
	}
	return nil
}

func (p *Peer) peerList() []PeerInfo {
	peers := p.roster.List()
	for i := range peers {
		peers[i].Admin = p.perms.IsAdmin(peers[i].Name)
	}
	return peers
}

func (p *Peer) requireServer(op string) error {
	if p.role != RoleServer {
		return fmt.Errorf("%s is only available on the server", op)
	}
	return nil
}

// GrantAdmin makes peer an admin and broadcasts the new state.
func (p *Peer) GrantAdmin(ctx context.Context, peer string) error {
	return p.setAdmin(ctx, peer, true)
}

// RevokeAdmin removes peer's admin flag and broadcasts the new state.
func (p *Peer) RevokeAdmin(ctx context.Context, peer string) error {
	return p.setAdmin(ctx, peer, false)
}

func (p *Peer) setAdmin(ctx context.Context, peer string, admin bool) error {
	if err := p.requireServer("admin changes"); err != nil {
		return err
	}
	if !p.perms.SetAdmin(peer, admin) {
		return nil
	}

	action := "admin:grant"
	if !admin {
		action = "admin:revoke"
	}
	observability.RecordPermissionAudit(ctx, action, peer, nil)
	p.logger.Info().Str("peer", peer).Bool("admin", admin).Msg("Admin state changed")
	return p.broadcastState(ctx)
}

// SetToolEnabled enables or disables tool for non-admins and broadcasts the
// new state.
func (p *Peer) SetToolEnabled(ctx context.Context, tool string, enabled bool) error {
	if err := p.requireServer("tool enablement"); err != nil {
		return err
	}
	if !p.perms.SetToolEnabled(tool, enabled) {
		return nil
	}

	observability.RecordPermissionAudit(ctx, "tool:enable", "", map[string]any{"tool": tool, "enabled": enabled})
	p.logger.Info().Str("tool", tool).Bool("enabled", enabled).Msg("Tool enablement changed")
	return p.broadcastState(ctx)
}

func (p *Peer) broadcastState(ctx context.Context) error {
	if err := p.transport.Broadcast(ctx, AdminUpdate{Snapshot: p.perms.Snapshot()}); err != nil {
		return fmt.Errorf("failed to broadcast permissions: %w", err)
	}
	return p.broadcastRoster(ctx)
}

func (p *Peer) broadcastRoster(ctx context.Context) error {
	if err := p.transport.Broadcast(ctx, PlayerManagerSync{Peers: p.peerList()}); err != nil {
		return fmt.Errorf("failed to broadcast roster: %w", err)
	}
	return nil
}

// PeerJoined adds peer to the roster and broadcasts it. Admin state is keyed
// by name, so a reconnecting peer keeps its flag.
func (p *Peer) PeerJoined(ctx context.Context, peer string) error {
	if err := p.requireServer("roster changes"); err != nil {
		return err
	}
	p.roster.Add(PeerInfo{Name: peer})
	observability.SetConnectedPeers(len(p.roster.List()))
	p.logger.Info().Str("peer", peer).Bool("admin", p.perms.IsAdmin(peer)).Msg("Peer joined")
	return p.broadcastRoster(ctx)
}

// PeerLeft removes peer from the roster and broadcasts it.
func (p *Peer) PeerLeft(ctx context.Context, peer string) error {
	if err := p.requireServer("roster changes"); err != nil {
		return err
	}
	p.roster.Remove(peer)
	observability.SetConnectedPeers(len(p.roster.List()))
	p.logger.Info().Str("peer", peer).Msg("Peer left")
	return p.broadcastRoster(ctx)
}

// RequestToolData asks the server for its current state.
func (p *Peer) RequestToolData(ctx context.Context) error {
	if p.role != RoleClient {
		return fmt.Errorf("only clients request tool data")
	}
	return p.transport.Send(ctx, ServerPeerID, ToolDataRequest{})
}

// SendToolPacket sends tool state for toolKey. Clients send to the server,
// which relays it; the server broadcasts to everyone.
func (p *Peer) SendToolPacket(ctx context.Context, toolKey string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal packet for %s: %w", toolKey, err)
	}
	msg := ToolPacket{Tool: toolKey, Data: raw}

	if p.role == RoleServer {
		return p.transport.Broadcast(ctx, msg)
	}
	if !p.perms.CanUse(p.name, toolKey) {
		return fmt.Errorf("tool %s: %w", toolKey, lenserr.ErrToolDisabled)
	}
	return p.transport.Send(ctx, ServerPeerID, msg)
}

// IsAdmin reports whether the local peer is an admin according to the last
// state received. Servers are always admin.
func (p *Peer) IsAdmin() bool {
	return p.role == RoleServer || p.perms.IsAdmin(p.name)
}

// Gate returns a tool gate backed by the local permission mirror.
func (p *Peer) Gate() tool.Gate {
	return func(key string) bool {
		if p.role == RoleServer {
			return true
		}
		return p.perms.CanUse(p.name, key)
	}
}
