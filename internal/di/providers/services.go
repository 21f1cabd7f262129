package providers

import (
	"github.com/samber/do/v2"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/config"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/logger"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/service"
	"github.com/dunbarapp/dunbar-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideGalleryBuilder provides the gallery view builder.
func ProvideGalleryBuilder(i do.Injector) (*gallery.Builder, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	lib := do.MustInvoke[*assets.Library](i)
	log := do.MustInvoke[*logger.Logger](i)

	return gallery.NewBuilder(storeHandle.Store, lib, gallery.Options{
		ThumbnailSize:    cfg.Gallery.ThumbnailSize,
		FetchConcurrency: cfg.Gallery.FetchConcurrency,
		CacheTTL:         cfg.Gallery.CacheTTL,
	}, log.Component("gallery")), nil
}

// ProvideTagService provides the tag management service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	reg := do.MustInvoke[*registry.Registry](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(reg, sseHandle.Manager, v, log.Component("tags")), nil
}

// ProvideCaptureService provides the photo capture service.
func ProvideCaptureService(i do.Injector) (*service.CaptureService, error) {
	reg := do.MustInvoke[*registry.Registry](i)
	lib := do.MustInvoke[*assets.Library](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCaptureService(reg, lib, storeHandle.Store, sseHandle.Manager, log.Component("capture")), nil
}

// ProvideGalleryService provides the gallery read service.
func ProvideGalleryService(i do.Injector) (*service.GalleryService, error) {
	builder := do.MustInvoke[*gallery.Builder](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewGalleryService(builder, log.Component("gallery")), nil
}
