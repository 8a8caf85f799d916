package protocol

import (
	"slices"
	"strings"
	"sync"
)

// Roster is the set of currently connected peer names.
type Roster struct {
	mu    sync.RWMutex
	peers map[string]PeerInfo
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{peers: make(map[string]PeerInfo)}
}

// Add records peer as connected
func (r *Roster) Add(peer PeerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[peer.Name] = peer
}

// Remove forgets peer
func (r *Roster) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, name)
}

// Has reports whether name is connected
func (r *Roster) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.peers[name]
	return ok
}

// List returns the roster sorted by name
func (r *Roster) List() []PeerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PeerInfo, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b PeerInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Replace overwrites the roster with peers
func (r *Roster) Replace(peers []PeerInfo) {
	next := make(map[string]PeerInfo, len(peers))
	for _, p := range peers {
		next[p.Name] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers = next
}
