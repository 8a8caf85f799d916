// Package tool holds the registry of interactive overlay tools: registration,
// ordered iteration, activation dispatch and icon drawing.
package tool

import (
	"fmt"

	"github.com/harun/lens/pkg/host"
)

// PacketHandler consumes the body of a ToolPacket addressed to a tool.
type PacketHandler func(peer string, data []byte) error

// Spec describes a tool to construct.
type Spec struct {
	// Key uniquely identifies the tool in the registry.
	Key string
	// DisplayKey is the localisation key for the tool's label; defaults to Key.
	DisplayKey string
	// IconKey names the icon to draw; defaults to Key.
	IconKey string
	// OnActivate runs on primary activation.
	OnActivate func()
	// OnRightClick runs on secondary activation. Nil means the tool has none.
	OnRightClick func()
	// OnPacket receives ToolPacket bodies for this tool.
	OnPacket PacketHandler
	// Binding is the input binding the host registered for the tool.
	Binding host.Binding
}

// Tool is a registered interactive action.
type Tool struct {
	key          string
	displayKey   string
	iconKey      string
	onActivate   func()
	onRightClick func()
	onPacket     PacketHandler
	binding      host.Binding
}

// New builds a tool from spec
func New(spec Spec) (*Tool, error) {
	if spec.Key == "" {
		return nil, fmt.Errorf("tool key cannot be empty")
	}
	if spec.OnActivate == nil {
		return nil, fmt.Errorf("tool %s has no activation callback", spec.Key)
	}

	t := &Tool{
		key:          spec.Key,
		displayKey:   spec.DisplayKey,
		iconKey:      spec.IconKey,
		onActivate:   spec.OnActivate,
		onRightClick: spec.OnRightClick,
		onPacket:     spec.OnPacket,
		binding:      spec.Binding,
	}
	if t.displayKey == "" {
		t.displayKey = spec.Key
	}
	if t.iconKey == "" {
		t.iconKey = spec.Key
	}
	return t, nil
}

func (t *Tool) Key() string           { return t.key }
func (t *Tool) DisplayKey() string    { return t.displayKey }
func (t *Tool) IconKey() string       { return t.iconKey }
func (t *Tool) Binding() host.Binding { return t.binding }

// HasRightClick reports whether the tool supports a secondary action.
func (t *Tool) HasRightClick() bool {
	return t.onRightClick != nil
}
