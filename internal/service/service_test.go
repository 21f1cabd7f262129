package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/store"
	"github.com/dunbarapp/dunbar-server/internal/validation"
)

// recordingEmitter collects emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (e *recordingEmitter) Emit(event sse.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

func (e *recordingEmitter) last() sse.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.events[len(e.events)-1]
}

// testEnv wires the services over a temporary store and photo directory.
type testEnv struct {
	store    *store.Store
	registry *registry.Registry
	library  *assets.Library
	builder  *gallery.Builder
	events   *recordingEmitter

	tags    *TagService
	capture *CaptureService
	gallery *GalleryService
}

// setupTestEnv creates services backed by a temporary directory.
func setupTestEnv(t *testing.T) (*testEnv, func()) { //nolint:gocritic // Test helper return values are clear from context
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "dunbar-service-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)

	s, err := store.New(filepath.Join(tmpDir, "prefs.db"), nil)
	require.NoError(t, err)

	reg, err := registry.New(context.Background(), s, logger)
	require.NoError(t, err)

	lib, err := assets.New(tmpDir, logger)
	require.NoError(t, err)

	builder := gallery.NewBuilder(s, lib, gallery.Options{}, logger)
	events := &recordingEmitter{}

	env := &testEnv{
		store:    s,
		registry: reg,
		library:  lib,
		builder:  builder,
		events:   events,
		tags:     NewTagService(reg, events, validation.New(), logger),
		capture:  NewCaptureService(reg, lib, s, events, logger),
		gallery:  NewGalleryService(builder, logger),
	}

	cleanup := func() {
		_ = s.Close()            //nolint:errcheck // Test cleanup
		_ = os.RemoveAll(tmpDir) //nolint:errcheck // Test cleanup
	}

	return env, cleanup
}

// pngBytes encodes a solid w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 200, G: 80, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
