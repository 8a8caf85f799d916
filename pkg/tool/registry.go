package tool

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/render"
	"github.com/rs/zerolog"
)

// IconResolver resolves an icon key to a drawable image.
type IconResolver interface {
	Icon(key string) (render.Image, error)
}

// Gate decides whether the local user may use a tool.
type Gate func(key string) bool

// Registry is the insertion-ordered collection of registered tools.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	order  []string
	icons  IconResolver
	gate   Gate
	logger zerolog.Logger
}

// NewRegistry creates an empty tool registry drawing icons through icons.
func NewRegistry(icons IconResolver, logger zerolog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]*Tool),
		icons:  icons,
		logger: logger.With().Str("component", "tools").Logger(),
	}
}

// Add registers t. A key that is already present is rejected.
func (r *Registry) Add(t *Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}

	r.mu.Lock()
	if _, exists := r.tools[t.key]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", lenserr.ErrDuplicateKey, t.key)
	}
	r.tools[t.key] = t
	r.order = append(r.order, t.key)
	count := len(r.order)
	r.mu.Unlock()

	observability.SetRegisteredTools(count)
	r.logger.Debug().Str("tool", t.key).Msg("Registered tool")
	return nil
}

// Get returns the tool registered under key
func (r *Registry) Get(key string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[key]
	if !ok {
		return nil, fmt.Errorf("tool %q: %w", key, lenserr.ErrNotFound)
	}
	return t, nil
}

// Has reports whether key is registered
func (r *Registry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[key]
	return ok
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Keys returns the registered keys in registration order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// All yields every tool in registration order. Each call starts a fresh pass
// over the tools registered at the moment iteration begins.
func (r *Registry) All() iter.Seq[*Tool] {
	return func(yield func(*Tool) bool) {
		r.mu.RLock()
		tools := make([]*Tool, 0, len(r.order))
		for _, key := range r.order {
			tools = append(tools, r.tools[key])
		}
		r.mu.RUnlock()

		for _, t := range tools {
			if !yield(t) {
				return
			}
		}
	}
}

// SetGate installs the permission gate consulted before activation. A nil
// gate allows everything.
func (r *Registry) SetGate(gate Gate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gate = gate
}

// Allowed reports whether the current gate lets the local user use key.
func (r *Registry) Allowed(key string) bool {
	r.mu.RLock()
	gate := r.gate
	r.mu.RUnlock()
	return gate == nil || gate(key)
}

// Activate runs the tool's primary callback on the calling goroutine. A
// panicking callback is logged and reported as ErrActivationFailed.
func (r *Registry) Activate(key string) error {
	t, err := r.Get(key)
	if err != nil {
		return err
	}
	return r.invoke(t, "activate", t.onActivate)
}

// RightClick runs the tool's secondary callback, if it has one.
func (r *Registry) RightClick(key string) error {
	t, err := r.Get(key)
	if err != nil {
		return err
	}
	if !t.HasRightClick() {
		return nil
	}
	return r.invoke(t, "right_click", t.onRightClick)
}

func (r *Registry) invoke(t *Tool, action string, fn func()) (err error) {
	if !r.Allowed(t.key) {
		observability.RecordToolDenied(t.key)
		r.logger.Debug().Str("tool", t.key).Str("action", action).Msg("Tool disabled for local user")
		return fmt.Errorf("tool %s: %w", t.key, lenserr.ErrToolDisabled)
	}

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("tool", t.key).
				Str("action", action).
				Interface("panic", rec).
				Msg("Tool callback failed")
			err = fmt.Errorf("tool %s: %w: %v", t.key, lenserr.ErrActivationFailed, rec)
		}
		observability.RecordToolActivation(t.key, time.Since(start), err == nil)
	}()

	fn()
	return nil
}

// DrawIcon draws the tool's icon centred in target at the largest scale that
// fits without distortion, and returns that scale.
func (r *Registry) DrawIcon(canvas render.Canvas, key string, target render.Rect) (float32, error) {
	t, err := r.Get(key)
	if err != nil {
		return 0, err
	}
	if r.icons == nil {
		return 0, fmt.Errorf("no icon resolver configured")
	}

	img, err := r.icons.Icon(t.iconKey)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve icon for tool %s: %w", key, err)
	}
	return render.DrawCentered(canvas, img, target, render.White), nil
}

// HandlePacket hands a ToolPacket body to the tool's packet handler. Tools
// without a handler ignore packets.
func (r *Registry) HandlePacket(key, peer string, data []byte) error {
	t, err := r.Get(key)
	if err != nil {
		return err
	}
	if t.onPacket == nil {
		return nil
	}
	return t.onPacket(peer, data)
}
