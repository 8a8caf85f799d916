package protocol

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/tool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, peer string, msg Message) error {
	args := m.Called(ctx, peer, msg)
	return args.Error(0)
}

func (m *MockTransport) Broadcast(ctx context.Context, msg Message, except ...string) error {
	args := m.Called(ctx, msg, except)
	return args.Error(0)
}

func init() {
	observability.SetAuditLogger(observability.NewAuditLogger(io.Discard))
}

func newServer(t *testing.T, transport Transport, tools *tool.Registry) *Peer {
	t.Helper()
	p, err := NewPeer(PeerConfig{Role: RoleServer, Transport: transport, Tools: tools, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return p
}

func newClient(t *testing.T, name string, transport Transport, tools *tool.Registry) *Peer {
	t.Helper()
	p, err := NewPeer(PeerConfig{Role: RoleClient, Name: name, Transport: transport, Tools: tools, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return p
}

func encode(t *testing.T, msg Message) []byte {
	t.Helper()
	data, err := Encode(msg)
	require.NoError(t, err)
	return data
}

func TestCodec(t *testing.T) {
	t.Run("envelope carries the tag", func(t *testing.T) {
		data := encode(t, ToolDataRequest{})
		var env map[string]any
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, "ToolDataRequest", env["type"])
	})

	t.Run("decodes every message kind", func(t *testing.T) {
		messages := []Message{
			ToolPacket{Tool: "Time", Data: json.RawMessage(`{"hour":6}`)},
			AdminUpdate{Snapshot: Snapshot{Revision: "r1", Admins: []string{"a"}, DisabledTools: []string{}}},
			ToolDataRequest{},
			PlayerManagerSync{Peers: []PeerInfo{{Name: "a", Admin: true}}},
		}
		for _, msg := range messages {
			got, err := Decode(encode(t, msg))
			require.NoError(t, err, msg.Tag())
			assert.Equal(t, msg, got)
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		_, err := Decode([]byte(`{"type":"FutureThing","body":{}}`))
		assert.ErrorIs(t, err, lenserr.ErrUnrecognizedMessageTag)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decode([]byte(`not json`))
		require.Error(t, err)
		assert.NotErrorIs(t, err, lenserr.ErrUnrecognizedMessageTag)
	})
}

func TestPermissions(t *testing.T) {
	p := NewPermissions()
	rev := p.Revision()

	assert.True(t, p.CanUse("peerA", "Godmode"))
	assert.True(t, p.SetToolEnabled("Godmode", false))
	assert.False(t, p.SetToolEnabled("Godmode", false))
	assert.NotEqual(t, rev, p.Revision())
	assert.False(t, p.CanUse("peerA", "Godmode"))

	assert.True(t, p.SetAdmin("peerA", true))
	assert.True(t, p.CanUse("peerA", "Godmode"), "admins use disabled tools")
	assert.False(t, p.CanUse("peerB", "Godmode"))

	snap := p.Snapshot()
	assert.Equal(t, []string{"peerA"}, snap.Admins)
	assert.Equal(t, []string{"Godmode"}, snap.DisabledTools)

	mirror := NewPermissions()
	mirror.SetAdmin("stale", true)
	mirror.Apply(snap)
	assert.Equal(t, snap, mirror.Snapshot())
	assert.False(t, mirror.IsAdmin("stale"))
}

func TestServer_ReconnectedAdminGetsDirectReply(t *testing.T) {
	ctx := context.Background()
	transport := &MockTransport{}
	transport.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	transport.On("Send", mock.Anything, "peerA", mock.Anything).Return(nil)

	server := newServer(t, transport, nil)
	require.NoError(t, server.PeerJoined(ctx, "peerA"))
	require.NoError(t, server.PeerJoined(ctx, "peerB"))
	require.NoError(t, server.GrantAdmin(ctx, "peerA"))

	require.NoError(t, server.PeerLeft(ctx, "peerA"))
	require.NoError(t, server.PeerJoined(ctx, "peerA"))

	require.NoError(t, server.Receive(ctx, "peerA", encode(t, ToolDataRequest{})))

	transport.AssertCalled(t, "Send", mock.Anything, "peerA", mock.MatchedBy(func(msg Message) bool {
		update, ok := msg.(AdminUpdate)
		return ok && len(update.Snapshot.Admins) == 1 && update.Snapshot.Admins[0] == "peerA"
	}))
	transport.AssertCalled(t, "Send", mock.Anything, "peerA", mock.MatchedBy(func(msg Message) bool {
		sync, ok := msg.(PlayerManagerSync)
		return ok && len(sync.Peers) == 2 && sync.Peers[0] == PeerInfo{Name: "peerA", Admin: true}
	}))
	transport.AssertNotCalled(t, "Send", mock.Anything, "peerB", mock.Anything)
}

func TestServer_RejectsClientAdminUpdate(t *testing.T) {
	ctx := context.Background()
	transport := &MockTransport{}

	server := newServer(t, transport, nil)
	before := server.Permissions().Snapshot()

	forged := AdminUpdate{Snapshot: Snapshot{Admins: []string{"peerB"}}}
	err := server.Receive(ctx, "peerB", encode(t, forged))

	assert.ErrorIs(t, err, lenserr.ErrUnauthorizedSender)
	assert.Equal(t, before, server.Permissions().Snapshot())
	assert.False(t, server.Permissions().IsAdmin("peerB"))
	transport.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
	transport.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestServer_RejectsClientRoster(t *testing.T) {
	server := newServer(t, &MockTransport{}, nil)
	err := server.Receive(context.Background(), "peerB", encode(t, PlayerManagerSync{Peers: []PeerInfo{{Name: "ghost"}}}))
	assert.ErrorIs(t, err, lenserr.ErrUnauthorizedSender)
	assert.False(t, server.Roster().Has("ghost"))
}

func TestServer_ToolPacket(t *testing.T) {
	ctx := context.Background()
	var got []string
	tools := tool.NewRegistry(nil, zerolog.Nop())
	timeTool, err := tool.New(tool.Spec{
		Key:        "Time",
		OnActivate: func() {},
		OnPacket: func(peer string, data []byte) error {
			got = append(got, peer+":"+string(data))
			return nil
		},
	})
	require.NoError(t, err)
	require.NoError(t, tools.Add(timeTool))

	transport := &MockTransport{}
	transport.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	server := newServer(t, transport, tools)

	packet := ToolPacket{Tool: "Time", Data: json.RawMessage(`6`)}
	require.NoError(t, server.Receive(ctx, "peerA", encode(t, packet)))
	assert.Equal(t, []string{"peerA:6"}, got)
	transport.AssertCalled(t, "Broadcast", mock.Anything, packet, []string{"peerA"})

	require.NoError(t, server.SetToolEnabled(ctx, "Time", false))
	err = server.Receive(ctx, "peerA", encode(t, packet))
	assert.ErrorIs(t, err, lenserr.ErrUnauthorizedSender)
	assert.Len(t, got, 1)
}

func TestServer_IgnoresUnknownTags(t *testing.T) {
	server := newServer(t, &MockTransport{}, nil)
	assert.NoError(t, server.Receive(context.Background(), "peerA", []byte(`{"type":"Teleport","body":{"x":1}}`)))
}

func TestServer_MalformedFrameDoesNotStopLaterMessages(t *testing.T) {
	ctx := context.Background()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, "peerA", mock.Anything).Return(nil)
	server := newServer(t, transport, nil)

	assert.Error(t, server.Receive(ctx, "peerA", []byte(`{"type":"AdminUpdate","body":"oops"}`)))
	assert.NoError(t, server.Receive(ctx, "peerA", encode(t, ToolDataRequest{})))
	transport.AssertNumberOfCalls(t, "Send", 2)
}

func TestClient_AppliesServerState(t *testing.T) {
	ctx := context.Background()
	transport := &MockTransport{}
	tools := tool.NewRegistry(nil, zerolog.Nop())
	client := newClient(t, "peerA", transport, tools)
	tools.SetGate(client.Gate())

	update := AdminUpdate{Snapshot: Snapshot{Revision: "r2", DisabledTools: []string{"Godmode"}}}
	require.NoError(t, client.Receive(ctx, ServerPeerID, encode(t, update)))
	assert.False(t, client.IsAdmin())
	assert.False(t, tools.Allowed("Godmode"))
	assert.True(t, tools.Allowed("Time"))

	update = AdminUpdate{Snapshot: Snapshot{Revision: "r3", Admins: []string{"peerA"}, DisabledTools: []string{"Godmode"}}}
	require.NoError(t, client.Receive(ctx, ServerPeerID, encode(t, update)))
	assert.True(t, client.IsAdmin())
	assert.True(t, tools.Allowed("Godmode"))

	roster := PlayerManagerSync{Peers: []PeerInfo{{Name: "peerA", Admin: true}, {Name: "peerB"}}}
	require.NoError(t, client.Receive(ctx, ServerPeerID, encode(t, roster)))
	assert.Equal(t, roster.Peers, client.Roster().List())
}

func TestClient_IgnoresUpdatesNotFromServer(t *testing.T) {
	client := newClient(t, "peerA", &MockTransport{}, nil)

	forged := AdminUpdate{Snapshot: Snapshot{Admins: []string{"peerA"}}}
	require.NoError(t, client.Receive(context.Background(), "peerB", encode(t, forged)))
	assert.False(t, client.IsAdmin())
}

func TestClient_Requests(t *testing.T) {
	ctx := context.Background()
	transport := &MockTransport{}
	transport.On("Send", mock.Anything, ServerPeerID, mock.Anything).Return(nil)
	client := newClient(t, "peerA", transport, nil)

	require.NoError(t, client.RequestToolData(ctx))
	transport.AssertCalled(t, "Send", mock.Anything, ServerPeerID, ToolDataRequest{})

	require.NoError(t, client.SendToolPacket(ctx, "Time", map[string]int{"hour": 6}))
	transport.AssertCalled(t, "Send", mock.Anything, ServerPeerID, ToolPacket{Tool: "Time", Data: json.RawMessage(`{"hour":6}`)})

	client.Permissions().SetToolEnabled("Time", false)
	assert.ErrorIs(t, client.SendToolPacket(ctx, "Time", 1), lenserr.ErrToolDisabled)

	assert.Error(t, client.GrantAdmin(ctx, "peerA"))
	assert.Error(t, client.PeerJoined(ctx, "peerB"))
}

func TestNewPeer_Validation(t *testing.T) {
	_, err := NewPeer(PeerConfig{Role: "observer", Transport: &MockTransport{}})
	assert.Error(t, err)

	_, err = NewPeer(PeerConfig{Role: RoleClient, Transport: &MockTransport{}})
	assert.Error(t, err)

	_, err = NewPeer(PeerConfig{Role: RoleServer})
	assert.Error(t, err)

	server, err := NewPeer(PeerConfig{Role: RoleServer, Transport: &MockTransport{}})
	require.NoError(t, err)
	assert.Equal(t, ServerPeerID, server.Name())
	assert.True(t, server.IsAdmin())
}
