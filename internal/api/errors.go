package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dunbarapp/dunbar-server/internal/assets"
	domainerrors "github.com/dunbarapp/dunbar-server/internal/errors"
	"github.com/dunbarapp/dunbar-server/internal/gallery"
	"github.com/dunbarapp/dunbar-server/internal/registry"
	"github.com/dunbarapp/dunbar-server/internal/store"
)

// StatusClientClosedRequest is reported when the caller went away mid-request.
const StatusClientClosedRequest = 499

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// sentinel maps a package-level error to its HTTP status and code.
type sentinel struct {
	err    error
	status int
	code   domainerrors.Code
}

var sentinels = []sentinel{
	{registry.ErrTagNotFound, http.StatusNotFound, domainerrors.CodeNotFound},
	{registry.ErrIndexOutOfRange, http.StatusBadRequest, domainerrors.CodeOutOfRange},
	{registry.ErrInvalidColor, http.StatusBadRequest, domainerrors.CodeValidation},
	{store.ErrAssociationNotFound, http.StatusNotFound, domainerrors.CodeNotFound},
	{store.ErrEmptyAssetID, http.StatusBadRequest, domainerrors.CodeValidation},
	{assets.ErrAssetNotFound, http.StatusNotFound, domainerrors.CodeNotFound},
	{assets.ErrInvalidID, http.StatusBadRequest, domainerrors.CodeValidation},
	{assets.ErrInvalidImage, http.StatusBadRequest, domainerrors.CodeValidation},
	{assets.ErrEmptyImage, http.StatusBadRequest, domainerrors.CodeValidation},
	{gallery.ErrNotTagged, http.StatusNotFound, domainerrors.CodeNotFound},
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			if err == nil {
				continue
			}

			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}

			for _, s := range sentinels {
				if errors.Is(err, s.err) {
					return &APIError{
						status:  s.status,
						Code:    string(s.code),
						Message: err.Error(),
					}
				}
			}

			if errors.Is(err, context.Canceled) {
				return &APIError{
					status:  StatusClientClosedRequest,
					Code:    string(domainerrors.CodeUnavailable),
					Message: "request canceled",
				}
			}

			// Huma's own request validation reports one ErrorDetail per field.
			var detailer huma.ErrorDetailer
			if errors.As(err, &detailer) {
				details = append(details, detailer.ErrorDetail().Error())
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(details) > 0 {
			apiErr.Details = details
		}
		return apiErr
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusMethodNotAllowed:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}
