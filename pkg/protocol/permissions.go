package protocol

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Snapshot is a serialisable copy of a Permissions table.
type Snapshot struct {
	Revision      string   `json:"revision"`
	Admins        []string `json:"admins"`
	DisabledTools []string `json:"disabledTools"`
}

// Permissions tracks admin peers and disabled tools. Tools are enabled unless
// disabled; admins may use every tool.
type Permissions struct {
	mu       sync.RWMutex
	revision string
	admins   map[string]bool
	disabled map[string]bool
}

// NewPermissions creates an empty table
func NewPermissions() *Permissions {
	return &Permissions{
		revision: uuid.NewString(),
		admins:   make(map[string]bool),
		disabled: make(map[string]bool),
	}
}

// SetAdmin marks peer as admin or not. It reports whether anything changed.
func (p *Permissions) SetAdmin(peer string, admin bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.admins[peer] == admin {
		return false
	}
	if admin {
		p.admins[peer] = true
	} else {
		delete(p.admins, peer)
	}
	p.revision = uuid.NewString()
	return true
}

// IsAdmin reports whether peer is an admin
func (p *Permissions) IsAdmin(peer string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.admins[peer]
}

// SetToolEnabled enables or disables tool for non-admin peers. It reports
// whether anything changed.
func (p *Permissions) SetToolEnabled(tool string, enabled bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.disabled[tool] == enabled {
		return false
	}
	if enabled {
		delete(p.disabled, tool)
	} else {
		p.disabled[tool] = true
	}
	p.revision = uuid.NewString()
	return true
}

// ToolEnabled reports whether tool is enabled for non-admin peers
func (p *Permissions) ToolEnabled(tool string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.disabled[tool]
}

// CanUse reports whether peer may use tool.
func (p *Permissions) CanUse(peer, tool string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.admins[peer] || !p.disabled[tool]
}

// Revision identifies the current state; it changes on every mutation.
func (p *Permissions) Revision() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.revision
}

// Snapshot returns a sorted copy of the table.
func (p *Permissions) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Snapshot{
		Revision:      p.revision,
		Admins:        make([]string, 0, len(p.admins)),
		DisabledTools: make([]string, 0, len(p.disabled)),
	}
	for peer := range p.admins {
		s.Admins = append(s.Admins, peer)
	}
	for tool := range p.disabled {
		s.DisabledTools = append(s.DisabledTools, tool)
	}
	slices.Sort(s.Admins)
	slices.Sort(s.DisabledTools)
	return s
}

// Apply replaces the table with s.
func (p *Permissions) Apply(s Snapshot) {
	admins := make(map[string]bool, len(s.Admins))
	for _, peer := range s.Admins {
		admins[peer] = true
	}
	disabled := make(map[string]bool, len(s.DisabledTools))
	for _, tool := range s.DisabledTools {
		disabled[tool] = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.admins = admins
	p.disabled = disabled
	p.revision = s.Revision
}
