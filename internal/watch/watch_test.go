package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnore(t *testing.T) {
	for _, p := range []string{".git", "docs/.intro.md.swp", "intro.md~", "x.swx", "#intro.md#", "Thumbs.db", ".DS_Store"} {
		assert.True(t, ShouldIgnore(p), p)
	}
	for _, p := range []string{"intro.md", "guide/img/logo.png", "a#b.md"} {
		assert.False(t, ShouldIgnore(p), p)
	}
}

func TestIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "site")
	w := New(root, time.Millisecond, func(context.Context) {}, out)

	assert.True(t, w.ignored(out))
	assert.True(t, w.ignored(filepath.Join(out, "index.html")))
	assert.False(t, w.ignored(filepath.Join(root, "site-notes.md")))
	assert.False(t, w.ignored(filepath.Join(root, "intro.md")))
}

func TestRunDebouncesChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guide"), 0o750))

	var rebuilds atomic.Int32
	w := New(root, 50*time.Millisecond, func(context.Context) { rebuilds.Add(1) }).
		WithLogger(slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(t.Context())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	// Give the watcher time to register the tree.
	time.Sleep(100 * time.Millisecond)
	for i := range 5 {
		name := filepath.Join(root, "guide", "intro.md")
		require.NoError(t, os.WriteFile(name, []byte{byte('a' + i)}, 0o600))
	}

	assert.Eventually(t, func() bool { return rebuilds.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), rebuilds.Load())

	// Hidden files do not trigger.
	require.NoError(t, os.WriteFile(filepath.Join(root, ".scratch"), []byte("x"), 0o600))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), rebuilds.Load())

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestRunMissingRoot(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), time.Millisecond, func(context.Context) {})
	err := w.Run(t.Context())
	assert.ErrorIs(t, err, ErrWatchFailed)
}
