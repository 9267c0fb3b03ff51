package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationlink/stationlink/internal/server/middleware"
)

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		"INVALID_INPUT":          http.StatusBadRequest,
		"NOT_FOUND":              http.StatusNotFound,
		"METHOD_NOT_ALLOWED":     http.StatusMethodNotAllowed,
		"RATE_LIMITED":           http.StatusTooManyRequests,
		"TIMEOUT":                http.StatusGatewayTimeout,
		"EXTERNAL_SERVICE_ERROR": http.StatusBadGateway,
		"SERVICE_UNAVAILABLE":    http.StatusServiceUnavailable,
		"INTERNAL_ERROR":         http.StatusInternalServerError,
		"SOMETHING_ELSE":         http.StatusInternalServerError,
	}

	for code, status := range tests {
		assert.Equal(t, status, HTTPStatusFromCode(code), code)
	}
}

func TestWrapUsesRequestIDAsCorrelationID(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDContextKey, "req-123")

	envelope := WrapRateLimited(ctx, stderrors.New("discord: rate limited"), "Discord API rate limit reached")

	assert.Equal(t, "RATE_LIMITED", envelope.Code)
	assert.Equal(t, "req-123", envelope.CorrelationID)
	assert.Equal(t, "discord: rate limited", envelope.Context["wrapped_error"])
}

func TestRespondWithErrorNormalizesPlainErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v3/server", nil)
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, stderrors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Details, "wrapped_error", "causes stay in the log")
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestRespondWithEnvelopeKeepsDetails(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDContextKey, "req-9")
	req := httptest.NewRequest(http.MethodGet, "/v3/discord/patrons/1", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	envelope := NewInvalidInputError("bad id").WithDetails(map[string]interface{}{"field": "id"})
	RespondWithEnvelope(rec, req, envelope)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "id", body.Error.Details["field"])
	assert.Equal(t, "req-9", body.Error.RequestID)
}

func TestEnsureEnvelope(t *testing.T) {
	envelope := NewNotFoundError("missing")
	assert.Same(t, envelope, EnsureEnvelope(envelope))

	wrapped := EnsureEnvelope(stderrors.New("disk on fire"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "disk on fire", wrapped.Context["wrapped_error"])

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}
