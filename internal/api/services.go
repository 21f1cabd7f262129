package api

import "github.com/dunbarapp/dunbar-server/internal/service"

// Services groups the business logic used by the API server.
type Services struct {
	Tag     *service.TagService
	Capture *service.CaptureService
	Gallery *service.GalleryService
}
