// Package extension is the entry point third-party code uses to add tools to
// the running suite.
package extension

import (
	"fmt"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/host"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/tool"
	"github.com/rs/zerolog"
)

const (
	// CallTag is the first value of every Call.
	CallTag = "AddAPITool"
	// UnnamedTool replaces a missing tool name.
	UnnamedTool = "Unnamed"
)

// IconRegistrar accepts icons supplied at runtime.
type IconRegistrar interface {
	RegisterAPIIcon(key string, img render.Image)
}

// ToolSpec is a tool as an extension describes it. Zero fields are replaced
// with defaults by AddTool.
type ToolSpec struct {
	Name    string
	Icon    render.Image
	OnClick func()
}

// Config wires an API to the suite it registers into.
type Config struct {
	// Owner namespaces bindings and localisation keys.
	Owner    string
	Tools    *tool.Registry
	Icons    IconRegistrar
	Bindings host.BindingRegistrar
	Strings  host.StringRegistrar
	// Loader resolves icon references passed to Call as strings.
	Loader render.Loader
	Logger zerolog.Logger
}

// API registers externally supplied tools.
type API struct {
	owner    string
	tools    *tool.Registry
	icons    IconRegistrar
	bindings host.BindingRegistrar
	strings  host.StringRegistrar
	loader   render.Loader
	logger   zerolog.Logger
}

// New creates an extension API
func New(cfg Config) (*API, error) {
	if cfg.Tools == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if cfg.Icons == nil {
		return nil, fmt.Errorf("icon registrar is required")
	}
	if cfg.Bindings == nil {
		cfg.Bindings = host.NewBindings()
	}
	if cfg.Strings == nil {
		cfg.Strings = host.NewStrings()
	}
	if cfg.Owner == "" {
		cfg.Owner = "Lens"
	}

	return &API{
		owner:    cfg.Owner,
		tools:    cfg.Tools,
		icons:    cfg.Icons,
		bindings: cfg.Bindings,
		strings:  cfg.Strings,
		loader:   cfg.Loader,
		logger:   cfg.Logger.With().Str("component", "extension").Logger(),
	}, nil
}

// Call is the dynamic entry point: ("AddAPITool", name, icon, callback). It
// returns the registered *tool.Tool, or nil when the call is malformed or
// registration fails. Call never panics.
func (a *API) Call(args ...any) any {
	spec, err := a.parseCall(args)
	if err != nil {
		observability.RecordExtensionCall(false)
		a.logger.Error().Err(err).Int("args", len(args)).Msg("Rejected extension call")
		return nil
	}

	t, err := a.AddTool(spec)
	if err != nil {
		return nil
	}
	return t
}

func (a *API) parseCall(args []any) (ToolSpec, error) {
	if len(args) != 4 {
		return ToolSpec{}, fmt.Errorf("%w: expected 4 arguments, got %d", lenserr.ErrInvalidCallShape, len(args))
	}
	tag, ok := args[0].(string)
	if !ok || tag != CallTag {
		return ToolSpec{}, fmt.Errorf("%w: unknown call %v", lenserr.ErrInvalidCallShape, args[0])
	}

	var spec ToolSpec
	switch name := args[1].(type) {
	case nil:
	case string:
		spec.Name = name
	default:
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("type", fmt.Sprintf("%T", name)).Str("default", UnnamedTool).Msg("Tool name is not a string, using default")
		spec.Name = UnnamedTool
	}

	switch icon := args[2].(type) {
	case nil:
	case render.Image:
		spec.Icon = icon
	case string:
		if icon != "" {
			spec.Icon = render.NewAsset(icon, a.loader)
		}
	default:
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("type", fmt.Sprintf("%T", icon)).Str("default", "MagicPixel").Msg("Tool icon is not an image, using fallback")
		spec.Icon = render.MagicPixel
	}

	switch cb := args[3].(type) {
	case nil:
	case func():
		spec.OnClick = cb
	default:
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("type", fmt.Sprintf("%T", cb)).Str("default", "no-op").Msg("Tool callback is not a func(), clicks will do nothing")
		spec.OnClick = a.noop(spec.Name)
	}

	return spec, nil
}

// AddTool registers spec as a new tool and returns it. Missing fields are
// replaced with defaults and logged. A name that is already registered is
// rejected before anything is registered, and a failed add releases its
// binding so the name can be retried.
func (a *API) AddTool(spec ToolSpec) (t *tool.Tool, err error) {
	bound := false
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error().
				Str("tool", spec.Name).
				Interface("panic", rec).
				Msg("Extension tool registration failed")
			t, err = nil, fmt.Errorf("failed to add tool %s: %v", spec.Name, rec)
		}
		if err != nil && bound {
			a.bindings.UnregisterBinding(a.owner, spec.Name)
		}
		observability.RecordExtensionCall(err == nil)
	}()

	spec = a.withDefaults(spec)

	if a.tools.Has(spec.Name) {
		err = fmt.Errorf("%w: %s", lenserr.ErrDuplicateKey, spec.Name)
		a.logger.Error().Err(err).Msg("Extension tool not added")
		return nil, err
	}

	binding, err := a.bindings.RegisterBinding(a.owner, spec.Name, "")
	if err != nil {
		a.logger.Error().Err(err).Str("tool", spec.Name).Msg("Failed to register tool binding")
		return nil, err
	}
	bound = true
	label := LabelKey(a.owner, spec.Name)
	a.strings.GetOrRegister(label, func() string { return spec.Name })

	t, err = tool.New(tool.Spec{
		Key:        spec.Name,
		DisplayKey: label,
		IconKey:    spec.Name,
		OnActivate: spec.OnClick,
		Binding:    binding,
	})
	if err != nil {
		return nil, err
	}
	a.icons.RegisterAPIIcon(spec.Name, spec.Icon)
	if err = a.tools.Add(t); err != nil {
		a.logger.Error().Err(err).Msg("Extension tool not added")
		return nil, err
	}

	a.logger.Info().Str("tool", spec.Name).Str("owner", a.owner).Msg("Added extension tool")
	return t, nil
}

func (a *API) withDefaults(spec ToolSpec) ToolSpec {
	if spec.Name == "" {
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("default", UnnamedTool).Msg("Tool name missing, using default")
		spec.Name = UnnamedTool
	}
	if render.IsNil(spec.Icon) {
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("tool", spec.Name).Str("default", "MagicPixel").Msg("Tool icon missing, using fallback")
		spec.Icon = render.MagicPixel
	}
	if spec.OnClick == nil {
		a.logger.Warn().Err(lenserr.ErrMissingArgument).Str("tool", spec.Name).Str("default", "no-op").Msg("Tool callback missing, clicks will do nothing")
		spec.OnClick = a.noop(spec.Name)
	}
	return spec
}

func (a *API) noop(name string) func() {
	if name == "" {
		name = UnnamedTool
	}
	logger := a.logger
	return func() {
		logger.Warn().Str("tool", name).Msg("Tool has no callback")
	}
}

// LabelKey is the localisation key of an extension tool's display name.
func LabelKey(owner, name string) string {
	return "Mods." + owner + ".Tools." + name + ".DisplayName"
}
