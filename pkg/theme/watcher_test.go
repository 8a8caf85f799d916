package theme

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lens.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Theme: {}\n"), 0644))

	var reloads atomic.Int32
	w, err := NewWatcher(WatcherConfig{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		Reload: func() error {
			reloads.Add(1)
			return nil
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("Theme: {a: 1}\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("Theme: {a: 2}\n"), 0644))

	assert.Eventually(t, func() bool { return reloads.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{Reload: func() error { return nil }})
	assert.Error(t, err)

	_, err = NewWatcher(WatcherConfig{Path: "x"})
	assert.Error(t, err)
}
