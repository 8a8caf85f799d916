package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindings(t *testing.T) {
	b := NewBindings()

	binding, err := b.RegisterBinding("lens", "Spawner", "")
	require.NoError(t, err)
	assert.Equal(t, "lens/Spawner", binding.ID())

	_, err = b.RegisterBinding("lens", "Spawner", "F1")
	assert.Error(t, err)

	got, ok := b.Get("lens/Spawner")
	require.True(t, ok)
	assert.Equal(t, binding, got)
	assert.Equal(t, []string{"lens/Spawner"}, b.IDs())

	b.UnregisterBinding("lens", "Spawner")
	assert.Empty(t, b.IDs())
	_, err = b.RegisterBinding("lens", "Spawner", "F1")
	assert.NoError(t, err)
}

func TestStrings_GetOrRegister(t *testing.T) {
	s := NewStrings()

	assert.Equal(t, "Spawner", s.GetOrRegister("Mods.lens.Tools.Spawner.DisplayName", func() string { return "Spawner" }))

	calls := 0
	value := s.GetOrRegister("Mods.lens.Tools.Spawner.DisplayName", func() string {
		calls++
		return "other"
	})
	assert.Equal(t, "Spawner", value)
	assert.Zero(t, calls, "existing entries do not re-run the default supplier")

	assert.Equal(t, "", s.GetOrRegister("empty", nil))
	_, ok := s.Lookup("missing")
	assert.False(t, ok)
}
