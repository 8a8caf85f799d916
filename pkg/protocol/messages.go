// Package protocol keeps the server and its clients in agreement on who is an
// admin and which tools are enabled. Messages are a closed set; each peer
// handles them one at a time through Peer.Receive.
package protocol

import "encoding/json"

// Wire tags
const (
	TagToolPacket        = "ToolPacket"
	TagAdminUpdate       = "AdminUpdate"
	TagToolDataRequest   = "ToolDataRequest"
	TagPlayerManagerSync = "PlayerManagerSync"
)

// Message is one of ToolPacket, AdminUpdate, ToolDataRequest or
// PlayerManagerSync.
type Message interface {
	Tag() string
	isMessage()
}

// ToolPacket carries tool state for a single tool.
type ToolPacket struct {
	Tool string          `json:"tool"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AdminUpdate is the server's authoritative permission state.
type AdminUpdate struct {
	Snapshot Snapshot `json:"snapshot"`
}

// ToolDataRequest asks the server for its current state.
type ToolDataRequest struct{}

// PlayerManagerSync is the server's roster of connected peers.
type PlayerManagerSync struct {
	Peers []PeerInfo `json:"peers"`
}

// PeerInfo describes one connected peer.
type PeerInfo struct {
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

func (ToolPacket) Tag() string        { return TagToolPacket }
func (AdminUpdate) Tag() string       { return TagAdminUpdate }
func (ToolDataRequest) Tag() string   { return TagToolDataRequest }
func (PlayerManagerSync) Tag() string { return TagPlayerManagerSync }

func (ToolPacket) isMessage()        {}
func (AdminUpdate) isMessage()       {}
func (ToolDataRequest) isMessage()   {}
func (PlayerManagerSync) isMessage() {}
