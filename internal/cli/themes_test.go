package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const themePkg = "github.com/harun/lens/pkg/theme."

func TestThemesCommand(t *testing.T) {
	t.Cleanup(func() { useBox, useIcons = "", "" })
	path := tempConfig(t)

	out, err := execute(t, "themes", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "* "+themePkg+"SimpleBoxes")
	assert.Contains(t, out, "  "+themePkg+"GlassBoxes")
	assert.Contains(t, out, "* "+themePkg+"DefaultIcons")

	out, err = execute(t, "themes", "use", "--config", path, "--box", "GlassBoxes", "--icons", "theme.HighContrastIcons")
	require.NoError(t, err)
	assert.Contains(t, out, "Theme saved")

	out, err = execute(t, "themes", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "* "+themePkg+"GlassBoxes")
	assert.Contains(t, out, "* "+themePkg+"HighContrastIcons")
}

func TestThemesUse_Errors(t *testing.T) {
	t.Cleanup(func() { useBox, useIcons = "", "" })
	path := tempConfig(t)

	_, err := execute(t, "themes", "use", "--config", path, "--box", "", "--icons", "")
	assert.Error(t, err)

	_, err = execute(t, "themes", "use", "--config", path, "--box", "Boxes")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestResolveProvider(t *testing.T) {
	names := []string{"a/theme.Foo", "b/other.Foo", "a/theme.Bar"}

	name, err := resolveProvider(names, "Bar")
	require.NoError(t, err)
	assert.Equal(t, "a/theme.Bar", name)

	name, err = resolveProvider(names, "theme.Foo")
	require.NoError(t, err)
	assert.Equal(t, "a/theme.Foo", name)

	name, err = resolveProvider(names, "b/other.Foo")
	require.NoError(t, err)
	assert.Equal(t, "b/other.Foo", name)

	_, err = resolveProvider(names, "Foo")
	assert.ErrorContains(t, err, "ambiguous")
}
