// Package theme holds the process-wide presentation selection: the active box
// provider, the active icon provider and the colour scheme, plus the icons
// extensions supply at runtime.
package theme

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/harun/lens/internal/observability"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/provider"
	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/store"
	"github.com/rs/zerolog"
)

// ColorScheme is the colour pair every panel is drawn with.
type ColorScheme struct {
	Background render.Color
	Button     render.Color
}

// DefaultColors returns the colour scheme used before anything is loaded.
func DefaultColors() ColorScheme {
	return ColorScheme{
		Background: render.RGBA(44, 75, 126, 230),
		Button:     render.RGBA(255, 255, 255, 255),
	}
}

var (
	defaultBoxKind  = provider.KindOf[*SimpleBoxes]()
	defaultIconKind = provider.KindOf[*DefaultIcons]()
)

// State is the current theme selection.
type State struct {
	boxes *provider.Registry[BoxProvider]
	icons *provider.Registry[IconProvider]

	mu       sync.RWMutex
	colors   ColorScheme
	apiIcons map[string]render.Image
	assets   map[string]*render.Asset
	loader   render.Loader
	logger   zerolog.Logger
}

// NewState creates a theme over the discovered provider registries. Icon
// assets are resolved through loader.
func NewState(boxes *provider.Registry[BoxProvider], icons *provider.Registry[IconProvider], loader render.Loader, logger zerolog.Logger) *State {
	return &State{
		boxes:    boxes,
		icons:    icons,
		colors:   DefaultColors(),
		apiIcons: make(map[string]render.Image),
		assets:   make(map[string]*render.Asset),
		loader:   loader,
		logger:   logger.With().Str("component", "theme").Logger(),
	}
}

// Boxes returns the box provider registry
func (s *State) Boxes() *provider.Registry[BoxProvider] { return s.boxes }

// IconProviders returns the icon provider registry
func (s *State) IconProviders() *provider.Registry[IconProvider] { return s.icons }

// SetBoxProvider selects the box provider registered under its qualified type name.
func (s *State) SetBoxProvider(name string) error {
	return s.boxes.SetCurrentByName(name)
}

// SetBoxProviderKind selects the box provider of kind.
func (s *State) SetBoxProviderKind(kind provider.Kind) error {
	return s.boxes.SetCurrentByKind(kind)
}

// SetBoxProviderInstance selects p directly.
func (s *State) SetBoxProviderInstance(p BoxProvider) {
	s.boxes.SetCurrent(p)
}

// SetIconProvider selects the icon provider registered under its qualified type name.
func (s *State) SetIconProvider(name string) error {
	return s.icons.SetCurrentByName(name)
}

// SetIconProviderKind selects the icon provider of kind.
func (s *State) SetIconProviderKind(kind provider.Kind) error {
	return s.icons.SetCurrentByKind(kind)
}

// SetIconProviderInstance selects p directly.
func (s *State) SetIconProviderInstance(p IconProvider) {
	s.icons.SetCurrent(p)
}

// UseBox selects the box provider of concrete kind T.
func UseBox[T BoxProvider](s *State) error {
	return s.SetBoxProviderKind(provider.KindOf[T]())
}

// UseIcons selects the icon provider of concrete kind T.
func UseIcons[T IconProvider](s *State) error {
	return s.SetIconProviderKind(provider.KindOf[T]())
}

// GetBoxProvider returns the registered box provider of kind T.
func GetBoxProvider[T BoxProvider](s *State) (BoxProvider, error) {
	return provider.Get[T](s.boxes)
}

// GetIconProvider returns the registered icon provider of kind T.
func GetIconProvider[T IconProvider](s *State) (IconProvider, error) {
	return provider.Get[T](s.icons)
}

// ApplyDefaults selects the baseline providers.
func (s *State) ApplyDefaults() error {
	if err := s.boxes.SetCurrentByKind(defaultBoxKind); err != nil {
		return fmt.Errorf("failed to apply default box provider: %w", err)
	}
	if err := s.icons.SetCurrentByKind(defaultIconKind); err != nil {
		return fmt.Errorf("failed to apply default icon provider: %w", err)
	}
	return nil
}

// Box returns the current box provider, selecting the default first if none
// was set yet.
func (s *State) Box() (BoxProvider, error) {
	if p, ok := s.boxes.Current(); ok {
		return p, nil
	}
	if err := s.boxes.SetCurrentByKind(defaultBoxKind); err != nil {
		return nil, fmt.Errorf("no box provider selected: %w", err)
	}
	p, _ := s.boxes.Current()
	return p, nil
}

// Icons returns the current icon provider, selecting the default first if
// none was set yet.
func (s *State) Icons() (IconProvider, error) {
	if p, ok := s.icons.Current(); ok {
		return p, nil
	}
	if err := s.icons.SetCurrentByKind(defaultIconKind); err != nil {
		return nil, fmt.Errorf("no icon provider selected: %w", err)
	}
	p, _ := s.icons.Current()
	return p, nil
}

// BoxName returns the qualified type name of the current box provider
func (s *State) BoxName() (string, error) {
	p, err := s.Box()
	if err != nil {
		return "", err
	}
	return provider.QualifiedName(reflect.TypeOf(p)), nil
}

// IconsName returns the qualified type name of the current icon provider
func (s *State) IconsName() (string, error) {
	p, err := s.Icons()
	if err != nil {
		return "", err
	}
	return provider.QualifiedName(reflect.TypeOf(p)), nil
}

// Colors returns the current colour scheme
func (s *State) Colors() ColorScheme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.colors
}

// SetColors replaces the colour scheme
func (s *State) SetColors(c ColorScheme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colors = c
}

// ButtonColor is the colour buttons are drawn in.
func (s *State) ButtonColor() render.Color {
	return s.Colors().Button
}

// BackgroundColor is the colour background boxes are drawn in.
func (s *State) BackgroundColor() render.Color {
	return s.Colors().Background
}

// RegisterAPIIcon adds an icon at runtime so every icon provider can draw it.
// Entries are never removed.
func (s *State) RegisterAPIIcon(key string, img render.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiIcons[key] = img
}

// Icon resolves key, preferring icons registered through RegisterAPIIcon over
// the current icon provider's set.
func (s *State) Icon(key string) (render.Image, error) {
	s.mu.RLock()
	img, ok := s.apiIcons[key]
	s.mu.RUnlock()
	if ok {
		return img, nil
	}

	p, err := s.Icons()
	if err != nil {
		return nil, err
	}
	ref := p.IconRef(key)
	if ref == "" {
		return nil, fmt.Errorf("icon %q: %w", key, lenserr.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	asset, ok := s.assets[ref]
	if !ok {
		asset = render.NewAsset(ref, s.loader)
		s.assets[ref] = asset
	}
	return asset, nil
}

// DrawBox draws a background box with the current provider and colours.
func (s *State) DrawBox(c render.Canvas, target render.Rect) error {
	p, err := s.Box()
	if err != nil {
		return err
	}
	p.DrawBox(c, target, s.BackgroundColor())
	return nil
}

// DrawButton draws a small button box with the current provider and colours.
func (s *State) DrawButton(c render.Canvas, target render.Rect) error {
	p, err := s.Box()
	if err != nil {
		return err
	}
	p.DrawSmallBox(c, target, s.ButtonColor())
	return nil
}

// Persisted keys
const (
	SectionKey     = "Theme"
	BoxThemeKey    = "BoxTheme"
	IconThemeKey   = "IconTheme"
	BackColorKey   = "backColor"
	ButtonColorKey = "buttonColor"
)

// Save writes the current selection into blob under the Theme section.
func (s *State) Save(blob store.Compound) error {
	boxName, err := s.BoxName()
	if err != nil {
		return err
	}
	iconName, err := s.IconsName()
	if err != nil {
		return err
	}
	colors := s.Colors()

	blob[SectionKey] = store.Compound{
		BoxThemeKey:    boxName,
		IconThemeKey:   iconName,
		BackColorKey:   encodeColor(colors.Background),
		ButtonColorKey: encodeColor(colors.Button),
	}
	return nil
}

// Load restores the selection from blob, or applies the defaults when blob has
// no Theme section. A malformed section leaves the state untouched.
func (s *State) Load(blob store.Compound) error {
	section, ok := blob.Section(SectionKey)
	if !ok {
		s.logger.Debug().Msg("No saved theme, applying defaults")
		observability.RecordThemeLoad("defaults")
		return s.ApplyDefaults()
	}

	if err := validateSection(section); err != nil {
		observability.RecordThemeLoad("error")
		return err
	}

	boxName, _ := section.String(BoxThemeKey)
	iconName, _ := section.String(IconThemeKey)

	box, err := s.boxes.GetByName(boxName)
	if err != nil {
		observability.RecordThemeLoad("error")
		return fmt.Errorf("failed to restore box theme: %w", err)
	}
	icons, err := s.icons.GetByName(iconName)
	if err != nil {
		observability.RecordThemeLoad("error")
		return fmt.Errorf("failed to restore icon theme: %w", err)
	}
	back, err := decodeColor(section[BackColorKey])
	if err != nil {
		observability.RecordThemeLoad("error")
		return fmt.Errorf("invalid %s: %w", BackColorKey, err)
	}
	button, err := decodeColor(section[ButtonColorKey])
	if err != nil {
		observability.RecordThemeLoad("error")
		return fmt.Errorf("invalid %s: %w", ButtonColorKey, err)
	}

	s.boxes.SetCurrent(box)
	s.icons.SetCurrent(icons)
	s.SetColors(ColorScheme{Background: back, Button: button})

	observability.RecordThemeLoad("restored")
	s.logger.Debug().Str("box", boxName).Str("icons", iconName).Msg("Theme restored")
	return nil
}
