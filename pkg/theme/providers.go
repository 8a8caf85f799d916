package theme

import (
	"github.com/harun/lens/pkg/provider"
	"github.com/harun/lens/pkg/render"
)

// BoxProvider draws the background boxes panels and buttons sit on.
type BoxProvider interface {
	DrawBox(c render.Canvas, target render.Rect, color render.Color)
	DrawSmallBox(c render.Canvas, target render.Rect, color render.Color)
}

// IconProvider maps an icon key to the asset reference of its built-in icon.
type IconProvider interface {
	IconRef(key string) string
}

// BoxCatalog lists every built-in box provider kind.
var BoxCatalog = provider.Catalog[BoxProvider]{
	func() BoxProvider { return &SimpleBoxes{} },
	func() BoxProvider { return &VanillaBoxes{} },
	func() BoxProvider { return &GlassBoxes{} },
}

// IconCatalog lists every built-in icon provider kind.
var IconCatalog = provider.Catalog[IconProvider]{
	func() IconProvider { return &DefaultIcons{} },
	func() IconProvider { return &HighContrastIcons{} },
}

// SimpleBoxes draws flat boxes with a one pixel darker border. It is the default.
type SimpleBoxes struct{}

func (SimpleBoxes) DrawBox(c render.Canvas, target render.Rect, color render.Color) {
	c.FillRect(target, shade(color, 0.6))
	c.FillRect(inset(target, 1), color)
}

func (b SimpleBoxes) DrawSmallBox(c render.Canvas, target render.Rect, color render.Color) {
	b.DrawBox(c, target, color)
}

// VanillaBoxes mimics the host game's own inventory panels.
type VanillaBoxes struct{}

func (VanillaBoxes) DrawBox(c render.Canvas, target render.Rect, color render.Color) {
	c.FillRect(target, shade(color, 0.4))
	c.FillRect(inset(target, 2), shade(color, 0.8))
	c.FillRect(inset(target, 4), color)
}

func (VanillaBoxes) DrawSmallBox(c render.Canvas, target render.Rect, color render.Color) {
	c.FillRect(target, shade(color, 0.4))
	c.FillRect(inset(target, 2), color)
}

// GlassBoxes draws translucent boxes with a highlight strip.
type GlassBoxes struct{}

func (GlassBoxes) DrawBox(c render.Canvas, target render.Rect, color render.Color) {
	glass := color
	glass.A = color.A / 2
	c.FillRect(target, glass)
	c.FillRect(render.Rect{X: target.X, Y: target.Y, W: target.W, H: 2}, render.RGBA(255, 255, 255, 96))
}

func (g GlassBoxes) DrawSmallBox(c render.Canvas, target render.Rect, color render.Color) {
	g.DrawBox(c, target, color)
}

// DefaultIcons serves the standard icon set. It is the default.
type DefaultIcons struct{}

func (DefaultIcons) IconRef(key string) string {
	return "Assets/Icons/Default/" + key + ".png"
}

// HighContrastIcons serves an outlined, high contrast icon set.
type HighContrastIcons struct{}

func (HighContrastIcons) IconRef(key string) string {
	return "Assets/Icons/HighContrast/" + key + ".png"
}

func shade(c render.Color, f float32) render.Color {
	return render.Color{
		R: uint8(float32(c.R) * f),
		G: uint8(float32(c.G) * f),
		B: uint8(float32(c.B) * f),
		A: c.A,
	}
}

func inset(r render.Rect, n int) render.Rect {
	out := render.Rect{X: r.X + n, Y: r.Y + n, W: r.W - 2*n, H: r.H - 2*n}
	if out.W < 0 {
		out.W = 0
	}
	if out.H < 0 {
		out.H = 0
	}
	return out
}
