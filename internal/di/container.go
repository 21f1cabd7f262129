// Package di provides dependency injection configuration for the Dunbar server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/di/providers"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/logger"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/service"
	"github.com/dunbarapp/dunbar-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideAssetLibrary)
	do.Provide(injector, providers.ProvideGalleryBuilder)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideCaptureService)
	do.Provide(injector, providers.ProvideGalleryService)

	// Workers
	do.Provide(injector, providers.ProvideFileWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*registry.Registry](injector)
	_ = do.MustInvoke[*assets.Library](injector)
	_ = do.MustInvoke[*gallery.Builder](injector)

	// Business services
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.CaptureService](injector)
	_ = do.MustInvoke[*service.GalleryService](injector)

	// Workers
	_ = do.MustInvoke[*providers.FileWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
