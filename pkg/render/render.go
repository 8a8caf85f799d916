// Package render models the drawing collaborators the overlay core needs:
// rectangles, opaque image handles, a canvas to draw onto and the icon
// fit computation. Actual draw calls belong to the host's graphics backend.
package render

// Color is an RGBA colour.
type Color struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// RGBA builds a colour from its components
func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// White is the untinted draw colour.
var White = Color{R: 255, G: 255, B: 255, A: 255}

// Vec2 is a point or a size in screen space.
type Vec2 struct {
	X float32
	Y float32
}

// Rect is an integer screen rectangle.
type Rect struct {
	X, Y, W, H int
}

// Center returns the centre point of the rectangle
func (r Rect) Center() Vec2 {
	return Vec2{X: float32(r.X) + float32(r.W)/2, Y: float32(r.Y) + float32(r.H)/2}
}

// Image is an opaque drawable handle.
type Image interface {
	Size() (width, height int)
}

// Canvas is implemented by the host's graphics backend.
type Canvas interface {
	// DrawImage draws img with its origin placed at pos, scaled uniformly.
	DrawImage(img Image, pos Vec2, origin Vec2, scale float32, tint Color)
	// FillRect fills a rectangle with a solid colour.
	FillRect(r Rect, c Color)
}

// FitScale returns the uniform scale that fits an icon of iconW x iconH inside
// a target of targetW x targetH without distortion. Degenerate icons scale to 0.
func FitScale(iconW, iconH, targetW, targetH int) float32 {
	if iconW <= 0 || iconH <= 0 {
		return 0
	}
	sx := float32(targetW) / float32(iconW)
	sy := float32(targetH) / float32(iconH)
	if sx < sy {
		return sx
	}
	return sy
}

// DrawCentered draws img centred inside target at its fit scale and returns
// the scale used.
func DrawCentered(c Canvas, img Image, target Rect, tint Color) float32 {
	w, h := img.Size()
	scale := FitScale(w, h, target.W, target.H)
	c.DrawImage(img, target.Center(), Vec2{X: float32(w) / 2, Y: float32(h) / 2}, scale, tint)
	return scale
}
