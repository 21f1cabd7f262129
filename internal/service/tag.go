package service

import (
	"context"
	"log/slog"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	domainerrors "github.com/dunbarapp/dunbar-server/internal/errors"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/sse"
	"github.com/dunbarapp/dunbar-server/internal/util"
	"github.com/dunbarapp/dunbar-server/internal/validation"
)

// EventEmitter publishes events to subscribers.
type EventEmitter interface {
	Emit(event sse.Event)
}

// CreateTagRequest is the input for TagService.Create.
// Color is optional; a color is derived from the name when it is empty.
type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,tagname"`
	Color string `json:"color,omitempty" validate:"omitempty,rgbahex"`
}

// UpdateTagRequest is the input for TagService.Update. Nil fields are left
// unchanged.
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// MoveTagRequest moves the tag at From so it ends up at To.
type MoveTagRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// TagService orchestrates edits to the tag registry.
// Registry edits never touch photo associations: snapshots keep the name and
// color they were recorded with.
type TagService struct {
	registry  *registry.Registry
	events    EventEmitter
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(reg *registry.Registry, events EventEmitter, v *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		registry:  reg,
		events:    events,
		validator: v,
		logger:    logger,
	}
}

// ListTags returns the registry in display order.
func (s *TagService) ListTags(_ context.Context) []domain.Tag {
	return s.registry.List()
}

// GetTag returns a tag by id.
func (s *TagService) GetTag(_ context.Context, tagID string) (domain.Tag, error) {
	return s.registry.Get(tagID)
}

// CreateTag adds a tag at the end of the registry.
func (s *TagService) CreateTag(ctx context.Context, req CreateTagRequest) (domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.Tag{}, err
	}

	name := util.NormalizeTagName(req.Name)
	c := color.ForName(name)
	if req.Color != "" {
		parsed, err := color.ParseHex(req.Color)
		if err != nil {
			return domain.Tag{}, domainerrors.Validation(err.Error())
		}
		c = parsed
	}

	tag, err := s.registry.Add(ctx, name, c)
	if err != nil {
		return domain.Tag{}, err
	}

	s.events.Emit(sse.NewTagCreatedEvent(tag))
	s.logger.Info("tag created", "tag_id", tag.ID, "name", tag.Name, "color", tag.Color.Hex())
	return tag, nil
}

// UpdateTag renames and/or recolors a tag.
func (s *TagService) UpdateTag(ctx context.Context, tagID string, req UpdateTagRequest) (domain.Tag, error) {
	if req.Name == nil && req.Color == nil {
		return domain.Tag{}, domainerrors.Validation("nothing to update")
	}

	var (
		name string
		c    color.RGBA
	)
	if req.Name != nil {
		if err := s.validator.Var("name", *req.Name, "tagname"); err != nil {
			return domain.Tag{}, err
		}
		name = util.NormalizeTagName(*req.Name)
	}
	if req.Color != nil {
		if err := s.validator.Var("color", *req.Color, "rgbahex"); err != nil {
			return domain.Tag{}, err
		}
		c, _ = color.ParseHex(*req.Color) //nolint:errcheck // validated above
	}

	tag, err := s.registry.Update(ctx, tagID, func(t *domain.Tag) {
		if req.Name != nil {
			t.Name = name
		}
		if req.Color != nil {
			t.Color = c
		}
	})
	if err != nil {
		return domain.Tag{}, err
	}

	s.events.Emit(sse.NewTagUpdatedEvent(tag))
	s.logger.Info("tag updated", "tag_id", tag.ID, "name", tag.Name, "color", tag.Color.Hex())
	return tag, nil
}

// DeleteTag removes a tag from the registry. Photos tagged with it keep
// their snapshots.
func (s *TagService) DeleteTag(ctx context.Context, tagID string) error {
	tag, err := s.registry.Delete(ctx, tagID)
	if err != nil {
		return err
	}

	s.events.Emit(sse.NewTagDeletedEvent(tag))
	s.logger.Info("tag deleted", "tag_id", tag.ID, "name", tag.Name)
	return nil
}

// DeleteTagAt removes the tag at a display position.
func (s *TagService) DeleteTagAt(ctx context.Context, index int) (domain.Tag, error) {
	tag, err := s.registry.DeleteAt(ctx, index)
	if err != nil {
		return domain.Tag{}, err
	}

	s.events.Emit(sse.NewTagDeletedEvent(tag))
	s.logger.Info("tag deleted", "tag_id", tag.ID, "index", index)
	return tag, nil
}

// MoveTag reorders the registry and returns the new order.
func (s *TagService) MoveTag(ctx context.Context, req MoveTagRequest) ([]domain.Tag, error) {
	moved, err := s.registry.Move(ctx, req.From, req.To)
	if err != nil {
		return nil, err
	}

	after := s.registry.List()
	order := make([]string, len(after))
	for i, t := range after {
		order[i] = t.ID
	}

	s.events.Emit(sse.NewTagMovedEvent(moved.ID, req.From, req.To, order))
	s.logger.Debug("tag moved", "tag_id", moved.ID, "from", req.From, "to", req.To)
	return after, nil
}
