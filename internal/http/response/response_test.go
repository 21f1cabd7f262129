package response

import (
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/dunbarapp/dunbar-server/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestJSON_Success(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"message": "test"}, discardLogger())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	result := decode(t, w)
	assert.Equal(t, Version, result.Version)
	assert.True(t, result.Success)
	assert.NotNil(t, result.Data)
	assert.Empty(t, result.Error)
}

func TestJSON_NilLogger(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, "ok", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode(t, w).Success)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter)
		wantCode int
		wantErr  string
		wantKind domainerrors.Code
	}{
		{
			name:     "bad request",
			write:    func(w http.ResponseWriter) { BadRequest(w, "bad", nil) },
			wantCode: http.StatusBadRequest,
			wantErr:  "bad",
			wantKind: domainerrors.CodeValidation,
		},
		{
			name:     "not found",
			write:    func(w http.ResponseWriter) { NotFound(w, "no route", nil) },
			wantCode: http.StatusNotFound,
			wantErr:  "no route",
			wantKind: domainerrors.CodeNotFound,
		},
		{
			name:     "method not allowed",
			write:    func(w http.ResponseWriter) { MethodNotAllowed(w, "nope", nil) },
			wantCode: http.StatusMethodNotAllowed,
			wantErr:  "nope",
			wantKind: domainerrors.CodeValidation,
		},
		{
			name:     "unavailable",
			write:    func(w http.ResponseWriter) { Unavailable(w, "shutting down", nil) },
			wantCode: http.StatusServiceUnavailable,
			wantErr:  "shutting down",
			wantKind: domainerrors.CodeUnavailable,
		},
		{
			name:     "internal",
			write:    func(w http.ResponseWriter) { InternalError(w, "boom", nil) },
			wantCode: http.StatusInternalServerError,
			wantErr:  "boom",
			wantKind: domainerrors.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.wantCode, w.Code)
			result := decode(t, w)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantErr, result.Error)
			assert.Equal(t, string(tt.wantKind), result.Code)
		})
	}
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, domainerrors.NotFound("tag not found"), discardLogger())

	assert.Equal(t, http.StatusNotFound, w.Code)
	result := decode(t, w)
	assert.Equal(t, "tag not found", result.Error)
	assert.Equal(t, string(domainerrors.CodeNotFound), result.Code)
}

func TestHandleError_UnknownErrorHidesText(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, io.ErrUnexpectedEOF, discardLogger())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w).Error)
}

func TestStatusCodeBoundary(t *testing.T) {
	tests := []struct {
		status          int
		expectedSuccess bool
	}{
		{200, true},
		{201, true},
		{399, true},
		{400, false},
		{404, false},
		{500, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.status, nil, nil)
			assert.Equal(t, tt.expectedSuccess, decode(t, w).Success)
		})
	}
}

func TestEnvelope_OmitEmpty(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, nil, nil)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `"v":1`))
	assert.NotContains(t, body, `"data":`)
	assert.NotContains(t, body, `"error":`)
	assert.NotContains(t, body, `"code":`)
}
