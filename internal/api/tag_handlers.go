package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	"github.com/dunbarapp/dunbar-server/internal/service"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns the tag registry in display order",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Description:   "Appends a tag to the registry. A color is derived from the name when none is given.",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Description: "Renames or recolors a tag. Photos tagged earlier keep their recorded name and color.",
		Tags:        []string{"Tags"},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTag",
		Method:        http.MethodDelete,
		Path:          "/api/v1/tags/{id}",
		Summary:       "Delete tag",
		Description:   "Removes a tag from the registry. Photos tagged with it stay in the gallery.",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTagAt",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/at/{index}",
		Summary:     "Delete tag by position",
		Description: "Removes the tag at a position in the registry and returns it",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTagAt)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/move",
		Summary:     "Move tag",
		Description: "Moves the tag at position from so it ends up at position to, and returns the new order",
		Tags:        []string{"Tags"},
	}, s.handleMoveTag)
}

// === DTOs ===

// TagResponse is a registry tag in API responses.
type TagResponse struct {
	ID        string     `json:"id" doc:"Tag ID"`
	Name      string     `json:"name" doc:"Display name"`
	Color     string     `json:"color" doc:"Color as #RRGGBB, or #RRGGBBAA when translucent"`
	RGBA      color.RGBA `json:"rgba" doc:"Color channels in [0, 1]"`
	CreatedAt time.Time  `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time  `json:"updated_at" doc:"Last edit time"`
}

func toTagResponse(t domain.Tag) TagResponse {
	return TagResponse{
		ID:        t.ID,
		Name:      t.Name,
		Color:     t.Color.Hex(),
		RGBA:      t.Color,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toTagResponses(tags []domain.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTagResponse(t)
	}
	return out
}

// ListTagsResponse contains the ordered registry.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"Tags in display order"`
}

// ListTagsOutput wraps the list response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// TagOutput wraps a single tag for Huma.
type TagOutput struct {
	Body TagResponse
}

// TagIDInput identifies a tag by path.
type TagIDInput struct {
	ID string `path:"id" doc:"Tag ID"`
}

// CreateTagInput contains the create request.
type CreateTagInput struct {
	Body struct {
		Name  string `json:"name" minLength:"1" maxLength:"64" doc:"Display name"`
		Color string `json:"color,omitempty" doc:"Optional color as #RRGGBB or #RRGGBBAA"`
	}
}

// UpdateTagInput contains the update request.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body struct {
		Name  *string `json:"name,omitempty" doc:"New display name"`
		Color *string `json:"color,omitempty" doc:"New color as #RRGGBB or #RRGGBBAA"`
	}
}

// DeleteTagAtInput identifies a tag by registry position.
type DeleteTagAtInput struct {
	Index int `path:"index" doc:"Zero-based registry position"`
}

// MoveTagInput contains the move request.
type MoveTagInput struct {
	Body struct {
		From int `json:"from" doc:"Current position of the tag"`
		To   int `json:"to" doc:"Position the tag ends up at"`
	}
}

// === Handlers ===

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags := s.services.Tag.ListTags(ctx)
	return &ListTagsOutput{Body: ListTagsResponse{Tags: toTagResponses(tags)}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.CreateTag(ctx, service.CreateTagRequest{
		Name:  input.Body.Name,
		Color: input.Body.Color,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *TagIDInput) (*TagOutput, error) {
	tag, err := s.services.Tag.GetTag(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.UpdateTag(ctx, input.ID, service.UpdateTagRequest{
		Name:  input.Body.Name,
		Color: input.Body.Color,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *TagIDInput) (*struct{}, error) {
	if err := s.services.Tag.DeleteTag(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleDeleteTagAt(ctx context.Context, input *DeleteTagAtInput) (*TagOutput, error) {
	tag, err := s.services.Tag.DeleteTagAt(ctx, input.Index)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleMoveTag(ctx context.Context, input *MoveTagInput) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.MoveTag(ctx, service.MoveTagRequest{
		From: input.Body.From,
		To:   input.Body.To,
	})
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: toTagResponses(tags)}}, nil
}
