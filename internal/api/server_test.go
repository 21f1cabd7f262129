package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/service"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/store"
	"github.com/dunbarapp/dunbar-server/internal/validation"
)

// testEnvelope decodes an enveloped response with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope decodes a coded error response.
type testErrorEnvelope struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// testServer wraps the API server with its collaborators.
type testServer struct {
	*Server
	api        humatest.TestAPI
	store      *store.Store
	registry   *registry.Registry
	library    *assets.Library
	sseManager *sse.Manager
}

// setupTestServer creates a server over a temporary store and photo directory.
func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "dunbar-api-test-*")
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)

	st, err := store.New(filepath.Join(tmpDir, "prefs.db"), nil)
	require.NoError(t, err)

	reg, err := registry.New(context.Background(), st, logger)
	require.NoError(t, err)

	lib, err := assets.New(tmpDir, logger)
	require.NoError(t, err)

	builder := gallery.NewBuilder(st, lib, gallery.Options{}, logger)
	sseManager := sse.NewManager(logger, sse.WithHeartbeatInterval(0))

	services := &Services{
		Tag:     service.NewTagService(reg, sseManager, validation.New(), logger),
		Capture: service.NewCaptureService(reg, lib, st, sseManager, logger),
		Gallery: service.NewGalleryService(builder, logger),
	}

	s := NewServer(services, st, sseManager, opts, logger)

	t.Cleanup(func() {
		s.Close()
		_ = sseManager.Shutdown(context.Background()) //nolint:errcheck // Test cleanup
		_ = st.Close()                                 //nolint:errcheck // Test cleanup
		_ = os.RemoveAll(tmpDir)                       //nolint:errcheck // Test cleanup
	})

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.api),
		store:      st,
		registry:   reg,
		library:    lib,
		sseManager: sseManager,
	}
}

// decodeEnvelope unmarshals an enveloped response body.
func decodeEnvelope[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}

// decodeError unmarshals a coded error response body.
func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()
	var envelope testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}

// tagID returns the ID of the registry tag with name.
func (ts *testServer) tagID(t *testing.T, name string) string {
	t.Helper()
	tag, ok := ts.registry.FindByName(name)
	require.True(t, ok, "tag %q not in registry", name)
	return tag.ID
}

// pngBytes encodes a solid w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
