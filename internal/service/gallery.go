package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	domainerrors "github.com/dunbarapp/dunbar-server/internal/errors"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/util"
)

// GalleryService serves the gallery views: the chronological feed, the tag
// catalog, per-tag feeds and full-resolution previews.
type GalleryService struct {
	builder *gallery.Builder
	logger  *slog.Logger
}

// NewGalleryService creates a new gallery service.
func NewGalleryService(builder *gallery.Builder, logger *slog.Logger) *GalleryService {
	return &GalleryService{builder: builder, logger: logger}
}

// Feed returns tagged photos newest first. A non-empty tagName restricts
// the feed to snapshots with that name.
func (s *GalleryService) Feed(ctx context.Context, tagName string) ([]domain.FeedItem, error) {
	if tagName == "" {
		return s.builder.Feed(ctx)
	}

	name := util.NormalizeTagName(tagName)
	if name == "" {
		return nil, domainerrors.Validation("tag name is empty")
	}
	return s.builder.FeedByTag(ctx, name)
}

// Catalog returns the distinct (name, color) pairs across all snapshots.
func (s *GalleryService) Catalog(ctx context.Context) ([]domain.CatalogEntry, error) {
	return s.builder.Catalog(ctx)
}

// Thumbnail returns the cached thumbnail of a photo.
func (s *GalleryService) Thumbnail(ctx context.Context, assetID string) ([]byte, error) {
	data, err := s.builder.Thumbnail(ctx, assetID)
	if err != nil {
		return nil, mapGalleryError(err)
	}
	return data, nil
}

// Preview returns a tagged photo at full resolution.
func (s *GalleryService) Preview(ctx context.Context, assetID string) (domain.Preview, error) {
	p, err := s.builder.Preview(ctx, assetID)
	if err != nil {
		if ctx.Err() != nil {
			s.logger.Debug("preview abandoned", "asset_id", assetID)
		}
		return domain.Preview{}, mapGalleryError(err)
	}
	return p, nil
}

func mapGalleryError(err error) error {
	switch {
	case errors.Is(err, gallery.ErrNotTagged):
		return domainerrors.NotFound("photo has no tag").WithCause(err)
	case errors.Is(err, assets.ErrAssetNotFound):
		return domainerrors.NotFound("photo not found").WithCause(err)
	case errors.Is(err, assets.ErrInvalidID):
		return domainerrors.Validation(err.Error())
	default:
		return err
	}
}
