package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
)

func (s *Server) registerGalleryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getFeed",
		Method:      http.MethodGet,
		Path:        "/api/v1/gallery/feed",
		Summary:     "Gallery feed",
		Description: "Returns tagged photos newest first, optionally only those recorded with one tag name",
		Tags:        []string{"Gallery"},
	}, s.handleGetFeed)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/gallery/catalog",
		Summary:     "Tag catalog",
		Description: "Returns every distinct name and color recorded with photos, including tags no longer in the registry",
		Tags:        []string{"Gallery"},
	}, s.handleGetCatalog)
}

// === DTOs ===

// FeedItemResponse is one tagged photo in the feed.
type FeedItemResponse struct {
	AssetID   string     `json:"asset_id" doc:"Photo ID"`
	TagName   string     `json:"tag_name" doc:"Tag name recorded with the photo"`
	Color     string     `json:"color" doc:"Recorded color as #RRGGBB, or #RRGGBBAA when translucent"`
	RGBA      color.RGBA `json:"rgba" doc:"Recorded color channels in [0, 1]"`
	CreatedAt time.Time  `json:"created_at" doc:"When the photo was taken"`
	Thumbnail []byte     `json:"thumbnail,omitempty" doc:"JPEG thumbnail, base64 encoded; absent when it could not be produced"`
	BlurHash  string     `json:"blur_hash,omitempty" doc:"BlurHash placeholder"`
}

// FeedResponse contains the feed.
type FeedResponse struct {
	Items []FeedItemResponse `json:"items" doc:"Photos, newest first"`
}

// FeedOutput wraps the feed for Huma.
type FeedOutput struct {
	Body FeedResponse
}

// FeedInput filters the feed.
type FeedInput struct {
	Tag string `query:"tag" doc:"Only photos recorded with this tag name"`
}

// CatalogEntryResponse is one distinct recorded tag.
type CatalogEntryResponse struct {
	Name  string     `json:"name" doc:"Recorded tag name"`
	Color string     `json:"color" doc:"Recorded color as #RRGGBB, or #RRGGBBAA when translucent"`
	RGBA  color.RGBA `json:"rgba" doc:"Recorded color channels in [0, 1]"`
	Count int        `json:"count" doc:"Number of photos recorded with this name and color"`
}

// CatalogResponse contains the catalog.
type CatalogResponse struct {
	Entries []CatalogEntryResponse `json:"entries" doc:"Distinct recorded tags"`
}

// CatalogOutput wraps the catalog for Huma.
type CatalogOutput struct {
	Body CatalogResponse
}

func toFeedItemResponse(item domain.FeedItem) FeedItemResponse {
	return FeedItemResponse{
		AssetID:   item.AssetID,
		TagName:   item.TagName,
		Color:     item.Color.Hex(),
		RGBA:      item.Color,
		CreatedAt: item.CreatedAt,
		Thumbnail: item.Thumbnail,
		BlurHash:  item.BlurHash,
	}
}

// === Handlers ===

func (s *Server) handleGetFeed(ctx context.Context, input *FeedInput) (*FeedOutput, error) {
	items, err := s.services.Gallery.Feed(ctx, input.Tag)
	if err != nil {
		return nil, err
	}

	out := make([]FeedItemResponse, len(items))
	for i, item := range items {
		out[i] = toFeedItemResponse(item)
	}
	return &FeedOutput{Body: FeedResponse{Items: out}}, nil
}

func (s *Server) handleGetCatalog(ctx context.Context, _ *struct{}) (*CatalogOutput, error) {
	entries, err := s.services.Gallery.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]CatalogEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = CatalogEntryResponse{
			Name:  e.Name,
			Color: e.Color.Hex(),
			RGBA:  e.Color,
			Count: e.Count,
		}
	}
	return &CatalogOutput{Body: CatalogResponse{Entries: out}}, nil
}
