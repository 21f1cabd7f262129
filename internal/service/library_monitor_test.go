package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/watcher"
)

func TestLibraryMonitor_ProcessEvent(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	assetID, err := env.library.WriteImage(ctx, pngBytes(t, 50, 50))
	require.NoError(t, err)
	_, err = env.builder.Thumbnail(ctx, assetID)
	require.NoError(t, err)
	require.Equal(t, 1, env.builder.CachedCount())

	m := NewLibraryMonitor(env.builder, env.events, slog.New(slog.DiscardHandler))

	require.NoError(t, m.ProcessEvent(ctx, watcher.Event{Type: watcher.EventRemoved, Path: env.library.Path(assetID)}))
	assert.Equal(t, 0, env.builder.CachedCount())

	ev := env.events.last()
	require.Equal(t, sse.EventLibraryChanged, ev.Type)
	data, ok := ev.Data.(sse.LibraryChangedEventData)
	require.True(t, ok)
	assert.Equal(t, []string{assetID}, data.Removed)
	assert.Empty(t, data.Added)
}

func TestLibraryMonitor_IgnoresForeignFiles(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	m := NewLibraryMonitor(env.builder, env.events, slog.New(slog.DiscardHandler))

	for _, path := range []string{"/photos/notes.txt", "/photos/.tmp-991", "/photos/abc.img"} {
		require.NoError(t, m.ProcessEvent(context.Background(), watcher.Event{Type: watcher.EventAdded, Path: path}))
	}
	assert.Empty(t, env.events.types())
}

func TestLibraryMonitor_RunReportsCopiedPhoto(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()

	w, err := watcher.New(nil, watcher.Options{SettleDelay: 20 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, w.Watch(env.library.Dir()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Start(ctx) }() //nolint:errcheck // Start only returns nil
	defer w.Stop()                   //nolint:errcheck // Test cleanup

	m := NewLibraryMonitor(env.builder, env.events, slog.New(slog.DiscardHandler))
	done := make(chan struct{})
	go func() {
		m.Run(ctx, w)
		close(done)
	}()

	// A photo copied in by hand, not through capture.
	assetID := "0D5E3E4A-8C1B-4F7E-9B2A-6C3D2E1F0A9B"
	require.NoError(t, os.WriteFile(env.library.Path(assetID), pngBytes(t, 4, 4), 0o644))

	assert.Eventually(t, func() bool {
		for _, typ := range env.events.types() {
			if typ == sse.EventLibraryChanged {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	data, ok := env.events.last().Data.(sse.LibraryChangedEventData)
	require.True(t, ok)
	assert.Equal(t, []string{assetID}, data.Added)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestLibraryMonitor_HandleWatchError(t *testing.T) {
	env, cleanup := setupTestEnv(t)
	defer cleanup()
	ctx := context.Background()

	for range 2 {
		assetID, err := env.library.WriteImage(ctx, pngBytes(t, 20, 20))
		require.NoError(t, err)
		_, err = env.builder.Thumbnail(ctx, assetID)
		require.NoError(t, err)
	}
	require.Equal(t, 2, env.builder.CachedCount())

	m := NewLibraryMonitor(env.builder, env.events, slog.New(slog.DiscardHandler))
	m.HandleWatchError(errors.New("fsnotify: queue or buffer overflow"))

	assert.Zero(t, env.builder.CachedCount())
	assert.Equal(t, sse.EventLibraryChanged, env.events.last().Type)
}
