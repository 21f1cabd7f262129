package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/dunbarapp/dunbar-server/internal/api"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/logger"
	"github.com/dunbarapp/dunbar-server/internal/service"
)

// version is stamped at build time with -ldflags "-X ...providers.version=...".
var version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	handler *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.handler.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	services := &api.Services{
		Tag:     do.MustInvoke[*service.TagService](i),
		Capture: do.MustInvoke[*service.CaptureService](i),
		Gallery: do.MustInvoke[*service.GalleryService](i),
	}

	handler := api.NewServer(services, storeHandle.Store, sseHandle.Manager, api.Options{
		Version:        version,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Capture.MaxUploadBytes,
		CaptureRate:    cfg.Capture.RateLimit,
		CaptureBurst:   cfg.Capture.RateBurst,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv, handler: handler}, nil
}
