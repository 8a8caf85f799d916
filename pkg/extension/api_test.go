package extension

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/harun/lens/pkg/host"
	"github.com/harun/lens/pkg/lenserr"
	"github.com/harun/lens/pkg/render"
	"github.com/harun/lens/pkg/tool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type iconTable map[string]render.Image

func (m iconTable) RegisterAPIIcon(key string, img render.Image) { m[key] = img }

func (m iconTable) Icon(key string) (render.Image, error) {
	img, ok := m[key]
	if !ok {
		return nil, errors.New("no icon")
	}
	return img, nil
}

type nopCanvas struct{}

func (nopCanvas) DrawImage(render.Image, render.Vec2, render.Vec2, float32, render.Color) {}
func (nopCanvas) FillRect(render.Rect, render.Color)                                     {}

type fixture struct {
	api      *API
	tools    *tool.Registry
	icons    iconTable
	bindings *host.Bindings
	strings  *host.Strings
	logs     *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		icons:    iconTable{},
		bindings: host.NewBindings(),
		strings:  host.NewStrings(),
		logs:     &bytes.Buffer{},
	}
	f.tools = tool.NewRegistry(f.icons, zerolog.Nop())

	api, err := New(Config{
		Owner:    "DragonLens",
		Tools:    f.tools,
		Icons:    f.icons,
		Bindings: f.bindings,
		Strings:  f.strings,
		Loader: render.LoaderFunc(func(ref string) (render.Image, error) {
			return render.Solid(16, 32), nil
		}),
		Logger: zerolog.New(f.logs),
	})
	require.NoError(t, err)
	f.api = api
	return f
}

func TestCall_Valid(t *testing.T) {
	f := newFixture(t)
	clicks := 0
	icon := render.Solid(20, 10)

	result := f.api.Call(CallTag, "Teleporter", icon, func() { clicks++ })

	added, ok := result.(*tool.Tool)
	require.True(t, ok)
	assert.Equal(t, "Teleporter", added.Key())
	assert.False(t, added.HasRightClick())

	got, err := f.tools.Get("Teleporter")
	require.NoError(t, err)
	assert.Same(t, added, got)

	assert.Equal(t, icon, f.icons["Teleporter"])

	_, ok = f.bindings.Get("DragonLens/Teleporter")
	assert.True(t, ok)
	assert.Equal(t, "DragonLens/Teleporter", added.Binding().ID())

	label, ok := f.strings.Lookup("Mods.DragonLens.Tools.Teleporter.DisplayName")
	assert.True(t, ok)
	assert.Equal(t, "Teleporter", label)

	require.NoError(t, f.tools.Activate("Teleporter"))
	assert.Equal(t, 1, clicks)
}

func TestCall_InvalidShape(t *testing.T) {
	tests := []struct {
		name string
		args []any
	}{
		{"no arguments", nil},
		{"too few", []any{CallTag, "x", nil}},
		{"too many", []any{CallTag, "x", nil, func() {}, 5}},
		{"wrong tag", []any{"AddTool", "x", nil, func() {}}},
		{"tag not a string", []any{42, "x", nil, func() {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assert.Nil(t, f.api.Call(tt.args...))
			assert.Equal(t, 0, f.tools.Len())
			assert.Empty(t, f.icons)
			assert.Empty(t, f.bindings.IDs())
		})
	}
}

func TestCall_Defaults(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		f := newFixture(t)
		result := f.api.Call(CallTag, nil, render.Solid(1, 1), func() {})
		added, ok := result.(*tool.Tool)
		require.True(t, ok)
		assert.Equal(t, UnnamedTool, added.Key())
		assert.Contains(t, f.logs.String(), "Tool name missing")
	})

	t.Run("missing icon draws the fallback", func(t *testing.T) {
		f := newFixture(t)
		result := f.api.Call(CallTag, "NoIcon", nil, func() {})
		require.NotNil(t, result)

		assert.Equal(t, render.MagicPixel, f.icons["NoIcon"])
		assert.Contains(t, f.logs.String(), `"level":"warn"`)
		assert.Contains(t, f.logs.String(), "Tool icon missing")

		scale, err := f.tools.DrawIcon(nopCanvas{}, "NoIcon", render.Rect{W: 40, H: 30})
		require.NoError(t, err)
		assert.Equal(t, float32(30), scale)
	})

	t.Run("missing callback is a warning no-op", func(t *testing.T) {
		f := newFixture(t)
		result := f.api.Call(CallTag, "Silent", render.Solid(1, 1), nil)
		require.NotNil(t, result)
		assert.Contains(t, f.logs.String(), "Tool callback missing")

		f.logs.Reset()
		require.NoError(t, f.tools.Activate("Silent"))
		assert.Contains(t, f.logs.String(), "Tool has no callback")
	})

	t.Run("nil asset draws the fallback", func(t *testing.T) {
		f := newFixture(t)
		var icon *render.Asset
		require.NotNil(t, f.api.Call(CallTag, "NilAsset", icon, func() {}))

		assert.Equal(t, render.MagicPixel, f.icons["NilAsset"])
		assert.Contains(t, f.logs.String(), "Tool icon missing")
		assert.NotPanics(t, func() {
			_, err := f.tools.DrawIcon(nopCanvas{}, "NilAsset", render.Rect{W: 10, H: 10})
			assert.NoError(t, err)
		})
	})

	t.Run("mistyped arguments warn once each", func(t *testing.T) {
		f := newFixture(t)
		result := f.api.Call(CallTag, 42, 3.5, "not a func")
		added, ok := result.(*tool.Tool)
		require.True(t, ok)
		assert.Equal(t, UnnamedTool, added.Key())
		assert.Equal(t, render.MagicPixel, f.icons[UnnamedTool])

		logs := f.logs.String()
		assert.Equal(t, 1, strings.Count(logs, "Tool name"))
		assert.Equal(t, 1, strings.Count(logs, "Tool icon"))
		assert.Equal(t, 1, strings.Count(logs, "Tool callback"))
		assert.Contains(t, logs, `"default":"Unnamed"`)
		assert.Contains(t, logs, `"type":"int"`)

		f.logs.Reset()
		require.NoError(t, f.tools.Activate(UnnamedTool))
		assert.Contains(t, f.logs.String(), "Tool has no callback")
	})

	t.Run("icon reference is loaded lazily", func(t *testing.T) {
		f := newFixture(t)
		require.NotNil(t, f.api.Call(CallTag, "ByRef", "Assets/ByRef.png", func() {}))

		asset, ok := f.icons["ByRef"].(*render.Asset)
		require.True(t, ok)
		assert.Equal(t, "Assets/ByRef.png", asset.Ref())
		w, h := asset.Size()
		assert.Equal(t, 16, w)
		assert.Equal(t, 32, h)
	})
}

func TestCall_DuplicateNameLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	first := render.Solid(2, 2)
	require.NotNil(t, f.api.Call(CallTag, "Twice", first, func() {}))

	assert.Nil(t, f.api.Call(CallTag, "Twice", render.Solid(9, 9), func() {}))
	assert.Equal(t, 1, f.tools.Len())
	assert.Equal(t, first, f.icons["Twice"])
}

func TestAddTool(t *testing.T) {
	f := newFixture(t)

	added, err := f.api.AddTool(ToolSpec{Name: "Builder", Icon: render.Solid(4, 4), OnClick: func() {}})
	require.NoError(t, err)
	assert.Equal(t, "Builder", added.Key())

	_, err = f.api.AddTool(ToolSpec{Name: "Builder"})
	assert.ErrorIs(t, err, lenserr.ErrDuplicateKey)
}

func TestAddTool_RecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.api.icons = panickingIcons{}

	var added *tool.Tool
	var err error
	assert.NotPanics(t, func() {
		added, err = f.api.AddTool(ToolSpec{Name: "Boom", Icon: render.Solid(1, 1), OnClick: func() {}})
	})
	assert.Nil(t, added)
	assert.Error(t, err)
	assert.Contains(t, f.logs.String(), "Extension tool registration failed")
}

func TestAddTool_RetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.api.icons = panickingIcons{}

	_, err := f.api.AddTool(ToolSpec{Name: "Retry", Icon: render.Solid(1, 1), OnClick: func() {}})
	require.Error(t, err)
	assert.Empty(t, f.bindings.IDs(), "a failed add releases its binding")

	f.api.icons = f.icons
	added, err := f.api.AddTool(ToolSpec{Name: "Retry", Icon: render.Solid(1, 1), OnClick: func() {}})
	require.NoError(t, err)
	assert.Equal(t, "Retry", added.Key())
	assert.Equal(t, []string{"DragonLens/Retry"}, f.bindings.IDs())
}

type panickingIcons struct{}

func (panickingIcons) RegisterAPIIcon(string, render.Image) { panic("icon table corrupted") }

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	_, err = New(Config{Tools: tool.NewRegistry(nil, zerolog.Nop())})
	assert.Error(t, err)
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "Mods.Owner.Tools.Key.DisplayName", LabelKey("Owner", "Key"))
}
