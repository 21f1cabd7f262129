package api

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/dunbarapp/dunbar-server/internal/color"
	"github.com/dunbarapp/dunbar-server/internal/domain"
	"github.com/dunbarapp/dunbar-server/internal/http/response"
)

func (s *Server) registerPhotoRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "capturePhoto",
		Method:        http.MethodPost,
		Path:          "/api/v1/photos",
		Summary:       "Save tagged photo",
		Description:   "Stores the uploaded image and records the current name and color of the chosen tag against it",
		Tags:          []string{"Photos"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.opts.MaxUploadBytes,
		Middlewares:   huma.Middlewares{s.rateLimitCapture},
	}, s.handleCapturePhoto)

	huma.Register(s.api, huma.Operation{
		OperationID: "retagPhoto",
		Method:      http.MethodPut,
		Path:        "/api/v1/photos/{id}/tag",
		Summary:     "Retag photo",
		Description: "Replaces the recorded tag of an existing photo with the current state of a registry tag",
		Tags:        []string{"Photos"},
	}, s.handleRetagPhoto)

	// Image bytes (chi direct, not huma)
	s.router.Get("/api/v1/photos/{id}/preview", s.handleServePreview)
	s.router.Get("/api/v1/photos/{id}/thumbnail", s.handleServeThumbnail)
}

// === DTOs ===

// AssociationResponse is a photo with its recorded tag.
type AssociationResponse struct {
	AssetID string     `json:"asset_id" doc:"Photo ID"`
	TagName string     `json:"tag_name" doc:"Tag name recorded with the photo"`
	Color   string     `json:"color" doc:"Recorded color as #RRGGBB, or #RRGGBBAA when translucent"`
	RGBA    color.RGBA `json:"rgba" doc:"Recorded color channels in [0, 1]"`
}

func toAssociationResponse(a domain.Association) AssociationResponse {
	return AssociationResponse{
		AssetID: a.AssetID,
		TagName: a.Snapshot.Name,
		Color:   a.Snapshot.Color.Hex(),
		RGBA:    a.Snapshot.Color,
	}
}

// AssociationOutput wraps an association for Huma.
type AssociationOutput struct {
	Body AssociationResponse
}

// CapturePhotoInput contains the upload request.
type CapturePhotoInput struct {
	TagID       string `query:"tag_id" required:"true" doc:"Registry tag to record with the photo"`
	ContentType string `header:"Content-Type" doc:"Image content type"`
	RawBody     []byte
}

// RetagPhotoInput contains the retag request.
type RetagPhotoInput struct {
	ID   string `path:"id" doc:"Photo ID"`
	Body struct {
		TagID string `json:"tag_id" minLength:"1" doc:"Registry tag to record with the photo"`
	}
}

// === Handlers ===

func (s *Server) handleCapturePhoto(ctx context.Context, input *CapturePhotoInput) (*AssociationOutput, error) {
	if !isAcceptedUploadType(input.ContentType) {
		return nil, huma.Error415UnsupportedMediaType(
			fmt.Sprintf("invalid image type '%s', must be an image", input.ContentType),
		)
	}

	assoc, err := s.services.Capture.SaveTagged(ctx, input.RawBody, input.TagID)
	if err != nil {
		return nil, err
	}
	return &AssociationOutput{Body: toAssociationResponse(assoc)}, nil
}

func (s *Server) handleRetagPhoto(ctx context.Context, input *RetagPhotoInput) (*AssociationOutput, error) {
	assoc, err := s.services.Capture.RetagAsset(ctx, input.ID, input.Body.TagID)
	if err != nil {
		return nil, err
	}
	return &AssociationOutput{Body: toAssociationResponse(assoc)}, nil
}

func (s *Server) handleServePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := s.services.Gallery.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(preview.Image))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(preview.Image)))
	w.Header().Set("X-Tag-Name", url.PathEscape(preview.TagName))
	w.Header().Set("X-Tag-Color", preview.Color.Hex())
	w.Header().Set("X-Created-At", preview.CreatedAt.UTC().Format(time.RFC3339))
	_, _ = w.Write(preview.Image)
}

func (s *Server) handleServeThumbnail(w http.ResponseWriter, r *http.Request) {
	data, err := s.services.Gallery.Thumbnail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=600")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

// isAcceptedUploadType reports whether an upload content type may carry an
// image. The library sniffs the bytes, so octet-stream and a missing type
// are let through.
func isAcceptedUploadType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp", "application/octet-stream":
		return true
	default:
		return false
	}
}
