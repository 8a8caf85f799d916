// Package suite wires the registries, theme and extension entry point into
// one explicitly owned context.
package suite

import (
	"context"
	"fmt"
	"sync"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/extension"
	"github.com/harun/lens/pkg/host"
	"github.com/harun/lens/pkg/protocol"
	"github.com/harun/lens/pkg/provider"
	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/store"
	"github.com/harun/lens/pkg/theme"
	"github.com/harun/lens/pkg/tool"
	"github.com/rs/zerolog"
)

// DefaultOwner namespaces the built-in tools' bindings and labels.
const DefaultOwner = "Lens"

// PanelOpener shows the host UI panel for a tool.
type PanelOpener func(panel string)

// Config holds suite configuration
type Config struct {
	Owner     string
	Loader    render.Loader
	Bindings  host.BindingRegistrar
	Strings   host.StringRegistrar
	OpenPanel PanelOpener
	Logger    zerolog.Logger
}

// Suite owns every registry of one lens instance.
type Suite struct {
	owner      string
	theme      *theme.State
	tools      *tool.Registry
	extensions *extension.API
	bindings   host.BindingRegistrar
	strings    host.StringRegistrar
	toggles    *Toggles
	openPanel  PanelOpener
	logger     zerolog.Logger

	mu   sync.RWMutex
	peer *protocol.Peer
}

// New discovers the theme providers, registers the built-in tools and
// prepares the extension entry point.
func New(cfg Config) (*Suite, error) {
	if cfg.Owner == "" {
		cfg.Owner = DefaultOwner
	}
	if cfg.Bindings == nil {
		cfg.Bindings = host.NewBindings()
	}
	if cfg.Strings == nil {
		cfg.Strings = host.NewStrings()
	}
	if cfg.Loader == nil {
		cfg.Loader = render.FileLoader{}
	}

	boxes, err := provider.Discover(theme.BoxCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to discover box providers: %w", err)
	}
	icons, err := provider.Discover(theme.IconCatalog)
	if err != nil {
		return nil, fmt.Errorf("failed to discover icon providers: %w", err)
	}

	state := theme.NewState(boxes, icons, cfg.Loader, cfg.Logger)
	tools := tool.NewRegistry(state, cfg.Logger)

	ext, err := extension.New(extension.Config{
		Owner:    cfg.Owner,
		Tools:    tools,
		Icons:    state,
		Bindings: cfg.Bindings,
		Strings:  cfg.Strings,
		Loader:   cfg.Loader,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Suite{
		owner:      cfg.Owner,
		theme:      state,
		tools:      tools,
		extensions: ext,
		bindings:   cfg.Bindings,
		strings:    cfg.Strings,
		toggles:    newToggles(),
		openPanel:  cfg.OpenPanel,
		logger:     cfg.Logger.With().Str("component", "suite").Logger(),
	}

	if err := s.registerBuiltins(); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("boxProviders", boxes.Len()).
		Int("iconProviders", icons.Len()).
		Int("tools", tools.Len()).
		Msg("Suite ready")
	return s, nil
}

func (s *Suite) Theme() *theme.State           { return s.theme }
func (s *Suite) Tools() *tool.Registry         { return s.tools }
func (s *Suite) Extensions() *extension.API    { return s.extensions }
func (s *Suite) Toggles() *Toggles             { return s.toggles }
func (s *Suite) Strings() host.StringRegistrar { return s.strings }

// Call forwards to the extension entry point.
func (s *Suite) Call(args ...any) any {
	return s.extensions.Call(args...)
}

func (s *Suite) registerBuiltins() error {
	for _, key := range BuiltinKeys() {
		b := builtinTools[key]

		binding, err := s.bindings.RegisterBinding(s.owner, key, "")
		if err != nil {
			return fmt.Errorf("failed to register binding for %s: %w", key, err)
		}
		label := extension.LabelKey(s.owner, key)
		s.strings.GetOrRegister(label, func() string { return key })

		spec := tool.Spec{Key: key, DisplayKey: label, Binding: binding}
		switch b.kind {
		case toggleTool:
			spec.OnActivate = func() { s.flip(key) }
			spec.OnPacket = func(peer string, data []byte) error {
				on, err := decodeToggle(data)
				if err != nil {
					return err
				}
				s.toggles.set(key, on)
				return nil
			}
		default:
			spec.OnActivate = func() { s.open(key) }
		}
		if b.rightClick {
			spec.OnRightClick = func() { s.open(key + ".Settings") }
		}

		t, err := tool.New(spec)
		if err != nil {
			return err
		}
		if err := s.tools.Add(t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) open(panel string) {
	if s.openPanel != nil {
		s.openPanel(panel)
		return
	}
	s.logger.Debug().Str("panel", panel).Msg("No panel opener configured")
}

func (s *Suite) flip(key string) {
	on := s.toggles.flip(key)
	s.logger.Debug().Str("tool", key).Bool("on", on).Msg("Toggled")

	s.mu.RLock()
	peer := s.peer
	s.mu.RUnlock()
	if peer == nil {
		return
	}
	if err := peer.SendToolPacket(context.Background(), key, togglePacket{On: on}); err != nil {
		s.logger.Warn().Err(err).Str("tool", key).Msg("Failed to sync toggle")
	}
}

// AttachPeer connects the suite to the permission protocol. Tool activation
// is gated by the peer's permission mirror from then on.
func (s *Suite) AttachPeer(p *protocol.Peer) {
	s.mu.Lock()
	s.peer = p
	s.mu.Unlock()
	s.tools.SetGate(p.Gate())
}

// LoadTheme restores the theme from st.
func (s *Suite) LoadTheme(ctx context.Context, st store.Store) error {
	blob, err := st.Load(ctx)
	if err != nil {
		observability.RecordThemeLoad("error")
		return fmt.Errorf("failed to load settings: %w", err)
	}
	return s.theme.Load(blob)
}

// SaveTheme writes the theme into st, keeping other sections intact.
func (s *Suite) SaveTheme(ctx context.Context, st store.Store) (err error) {
	defer func() { observability.RecordThemeSave(err == nil) }()

	blob, err := st.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := s.theme.Save(blob); err != nil {
		return err
	}
	if err := st.Save(ctx, blob); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
