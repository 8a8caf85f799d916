package transport

import (
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type connection struct {
	id          string
	peer        string
	conn        *websocket.Conn
	remoteAddr  string
	connectedAt time.Time

	writeMu sync.Mutex
}

func (c *connection) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// PeerInfo describes a live connection.
type PeerInfo struct {
	Peer        string    `json:"peer"`
	ConnID      string    `json:"connId"`
	RemoteAddr  string    `json:"remoteAddr"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// peerRegistry maps authenticated peer names to their connection.
type peerRegistry struct {
	mu    sync.RWMutex
	peers map[string]*connection
}

func newPeerRegistry() *peerRegistry {
	return &peerRegistry{peers: make(map[string]*connection)}
}

// add stores c and returns the connection it replaced, if any.
func (r *peerRegistry) add(c *connection) *connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.peers[c.peer]
	r.peers[c.peer] = c
	return prev
}

// remove drops peer only if it is still bound to connection id. It reports
// whether anything was removed.
func (r *peerRegistry) remove(peer, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.peers[peer]
	if !ok || c.id != id {
		return false
	}
	delete(r.peers, peer)
	return true
}

func (r *peerRegistry) get(peer string) (*connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.peers[peer]
	return c, ok
}

func (r *peerRegistry) all() []*connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*connection, 0, len(r.peers))
	for _, c := range r.peers {
		out = append(out, c)
	}
	return out
}

func (r *peerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *peerRegistry) info() []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PeerInfo, 0, len(r.peers))
	for _, c := range r.peers {
		infos = append(infos, PeerInfo{
			Peer:        c.peer,
			ConnID:      c.id,
			RemoteAddr:  c.remoteAddr,
			ConnectedAt: c.connectedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Peer < infos[j].Peer })
	return infos
}
