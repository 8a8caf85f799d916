package render

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"reflect"
	"sync"
)

// Loader resolves an opaque image reference to drawable pixel data.
type Loader interface {
	Load(ref string) (Image, error)
}

// LoaderFunc adapts a function to the Loader interface
type LoaderFunc func(ref string) (Image, error)

// Load calls f(ref)
func (f LoaderFunc) Load(ref string) (Image, error) {
	return f(ref)
}

// Pixels wraps a decoded image.
type Pixels struct {
	img image.Image
}

// NewPixels wraps img as a drawable handle
func NewPixels(img image.Image) *Pixels {
	return &Pixels{img: img}
}

// Size returns the pixel dimensions
func (p *Pixels) Size() (int, int) {
	b := p.img.Bounds()
	return b.Dx(), b.Dy()
}

// Raw returns the decoded image
func (p *Pixels) Raw() image.Image {
	return p.img
}

// FileLoader decodes PNG files relative to Root.
type FileLoader struct {
	Root string
}

// Load reads and decodes ref
func (l FileLoader) Load(ref string) (Image, error) {
	path := ref
	if l.Root != "" {
		path = filepath.Join(l.Root, ref)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", ref, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", ref, err)
	}
	return NewPixels(img), nil
}

// Asset is a lazily loaded image handle. The first Size or Value call loads it;
// a failed load falls back to MagicPixel.
type Asset struct {
	ref    string
	loader Loader

	once sync.Once
	img  Image
	err  error
}

// NewAsset creates a lazy handle for ref
func NewAsset(ref string, loader Loader) *Asset {
	return &Asset{ref: ref, loader: loader}
}

// Ref returns the reference the asset was created with
func (a *Asset) Ref() string {
	if a == nil {
		return ""
	}
	return a.ref
}

// Value loads the asset if needed and returns the image. A nil asset yields
// MagicPixel.
func (a *Asset) Value() (Image, error) {
	if a == nil {
		return MagicPixel, fmt.Errorf("nil asset")
	}
	a.once.Do(func() {
		if a.loader == nil {
			a.err = fmt.Errorf("no loader for asset %s", a.ref)
			return
		}
		a.img, a.err = a.loader.Load(a.ref)
	})
	if a.err != nil {
		return MagicPixel, a.err
	}
	return a.img, nil
}

// Size returns the dimensions of the loaded image
func (a *Asset) Size() (int, int) {
	img, _ := a.Value()
	return img.Size()
}

type solid struct {
	w, h int
}

func (s solid) Size() (int, int) { return s.w, s.h }

// IsNil reports whether img is nil or a typed nil such as a nil *Asset.
func IsNil(img Image) bool {
	if img == nil {
		return true
	}
	v := reflect.ValueOf(img)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// MagicPixel is the 1x1 fallback image.
var MagicPixel Image = solid{w: 1, h: 1}

// Solid returns a blank image handle of the given size, mostly useful in tests
// and for placeholder icons.
func Solid(w, h int) Image {
	return solid{w: w, h: h}
}
