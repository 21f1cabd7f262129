package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	domainerrors "github.com/dunbarapp/dunbar-server/internal/errors"
	"github.com/dunbarapp/dunbar-server/internal/id"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/sse"
)

// AssetWriter stores captured photos.
type AssetWriter interface {
	WriteImage(ctx context.Context, data []byte) (string, error)
	Stat(assetID string) (domain.Asset, error)
}

// AssociationWriter records which tag a photo was saved with.
type AssociationWriter interface {
	PutAssociation(ctx context.Context, assetID string, snap domain.Snapshot) error
	GetAssociation(ctx context.Context, assetID string) (domain.Snapshot, error)
}

// TagResolver looks up live registry tags.
type TagResolver interface {
	Get(tagID string) (domain.Tag, error)
}

// CaptureService saves captured photos together with the tag they were
// taken under.
type CaptureService struct {
	tags         TagResolver
	assets       AssetWriter
	associations AssociationWriter
	events       EventEmitter
	logger       *slog.Logger
}

// NewCaptureService creates a new capture service.
func NewCaptureService(tags TagResolver, assets AssetWriter, associations AssociationWriter, events EventEmitter, logger *slog.Logger) *CaptureService {
	return &CaptureService{
		tags:         tags,
		assets:       assets,
		associations: associations,
		events:       events,
		logger:       logger,
	}
}

// SaveTagged writes image to the asset library and records the current
// name and color of tagID against the new asset.
//
// The two writes are not atomic. If the association cannot be persisted the
// asset stays in the library untagged; the returned error carries its id so
// the caller can retry with RetagAsset.
func (s *CaptureService) SaveTagged(ctx context.Context, image []byte, tagID string) (domain.Association, error) {
	// Resolve first: an unknown tag must not leave an untagged photo behind.
	tag, err := s.resolveTag(tagID)
	if err != nil {
		return domain.Association{}, err
	}
	snap := tag.Snapshot()

	assetID, err := s.assets.WriteImage(ctx, image)
	if err != nil {
		return domain.Association{}, s.mapAssetError(err)
	}

	// The photo is on disk now; a caller that hangs up must not leave it
	// untagged.
	if err := s.associations.PutAssociation(context.WithoutCancel(ctx), assetID, snap); err != nil {
		s.logger.Error("photo saved without tag",
			"asset_id", assetID,
			"tag_id", tagID,
			"error", err,
		)
		return domain.Association{}, domainerrors.Wrap(err, domainerrors.CodeInternal, "photo saved but tag was not recorded").
			WithDetails(map[string]string{"asset_id": assetID})
	}

	s.events.Emit(sse.NewPhotoTaggedEvent(assetID, snap, false))
	s.logger.Info("photo saved",
		"asset_id", assetID,
		"tag_name", snap.Name,
		"color", snap.Color.Hex(),
	)

	return domain.Association{AssetID: assetID, Snapshot: snap}, nil
}

// RetagAsset replaces the snapshot of an existing asset with the current
// state of tagID.
func (s *CaptureService) RetagAsset(ctx context.Context, assetID, tagID string) (domain.Association, error) {
	if !id.IsAssetID(assetID) {
		return domain.Association{}, domainerrors.Validationf("invalid asset id %q", assetID)
	}
	if _, err := s.assets.Stat(assetID); err != nil {
		return domain.Association{}, s.mapAssetError(err)
	}

	tag, err := s.resolveTag(tagID)
	if err != nil {
		return domain.Association{}, err
	}
	snap := tag.Snapshot()

	_, getErr := s.associations.GetAssociation(ctx, assetID)
	retagged := getErr == nil

	if err := s.associations.PutAssociation(ctx, assetID, snap); err != nil {
		return domain.Association{}, err
	}

	s.events.Emit(sse.NewPhotoTaggedEvent(assetID, snap, retagged))
	s.logger.Info("photo retagged",
		"asset_id", assetID,
		"tag_name", snap.Name,
		"replaced", retagged,
	)

	return domain.Association{AssetID: assetID, Snapshot: snap}, nil
}

func (s *CaptureService) resolveTag(tagID string) (domain.Tag, error) {
	if tagID == "" {
		return domain.Tag{}, domainerrors.Validation("tag_id is required")
	}
	tag, err := s.tags.Get(tagID)
	if errors.Is(err, registry.ErrTagNotFound) {
		return domain.Tag{}, domainerrors.NotFoundf("tag %s not found", tagID).WithCause(err)
	}
	return tag, err
}

func (s *CaptureService) mapAssetError(err error) error {
	switch {
	case errors.Is(err, assets.ErrEmptyImage),
		errors.Is(err, assets.ErrInvalidImage),
		errors.Is(err, assets.ErrInvalidID):
		return domainerrors.Validation(err.Error())
	case errors.Is(err, assets.ErrAssetNotFound):
		return domainerrors.NotFound("photo not found").WithCause(err)
	default:
		return err
	}
}
