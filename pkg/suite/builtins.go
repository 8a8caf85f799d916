package suite

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

type builtinKind int

const (
	// panelTool opens a panel in the host UI.
	panelTool builtinKind = iota
	// toggleTool flips a synced on/off switch.
	toggleTool
)

type builtin struct {
	kind       builtinKind
	rightClick bool
}

var builtinTools = map[string]builtin{
	"ItemSpawner":   {kind: panelTool},
	"NPCSpawner":    {kind: panelTool},
	"Time":          {kind: panelTool, rightClick: true},
	"Weather":       {kind: panelTool, rightClick: true},
	"PlayerManager": {kind: panelTool},
	"Customize":     {kind: panelTool},
	"Godmode":       {kind: toggleTool},
	"InfiniteReach": {kind: toggleTool},
	"NoClip":        {kind: toggleTool},
}

// BuiltinKeys returns the keys of the built-in tools in registration order.
func BuiltinKeys() []string {
	keys := make([]string, 0, len(builtinTools))
	for key := range builtinTools {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// togglePacket is the ToolPacket body of a toggle tool.
type togglePacket struct {
	On bool `json:"on"`
}

// Toggles holds the state of the on/off built-in tools.
type Toggles struct {
	mu    sync.RWMutex
	state map[string]bool
}

func newToggles() *Toggles {
	return &Toggles{state: make(map[string]bool)}
}

// On reports whether key is switched on
func (t *Toggles) On(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state[key]
}

func (t *Toggles) flip(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[key] = !t.state[key]
	return t.state[key]
}

func (t *Toggles) set(key string, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state[key] = on
}

func decodeToggle(data []byte) (bool, error) {
	var p togglePacket
	if err := json.Unmarshal(data, &p); err != nil {
		return false, fmt.Errorf("invalid toggle packet: %w", err)
	}
	return p.On, nil
}
