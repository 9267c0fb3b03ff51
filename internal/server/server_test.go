package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationlink/stationlink/internal/discord"
	apperrors "github.com/stationlink/stationlink/internal/errors"
	"github.com/stationlink/stationlink/internal/ratelimit"
	"github.com/stationlink/stationlink/internal/server/handlers"
	"github.com/stationlink/stationlink/internal/servers"
	"github.com/stationlink/stationlink/internal/topic"
)

type stubServers []servers.Server

func (s stubServers) Status(ctx context.Context) []servers.Server {
	return s
}

type stubPatrons struct {
	ids     []string
	patrons map[int64]bool
	err     error
}

func (s stubPatrons) Patrons(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

func (s stubPatrons) IsPatron(ctx context.Context, userID int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.patrons[userID], nil
}

func serve(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := New("127.0.0.1", 0, Deps{})

	rec := serve(t, srv, "/does-not-exist")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec).Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Error.Code)
}

func TestServerStatusRoute(t *testing.T) {
	srv := New("127.0.0.1", 0, Deps{Servers: stubServers{
		{State: servers.StateOnline, Name: "Sybil", Address: "byond://sybil:1337", Round: &servers.Round{Players: 40, GameState: topic.GameStatePlaying}},
		{State: servers.StateOffline, Name: "Terry", Address: "byond://terry:3336", ErrorMessage: "down"},
	}})

	rec := serve(t, srv, "/v3/server")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, "online", body[0]["status"])
	assert.Equal(t, float64(40), body[0]["players"])
	assert.Equal(t, "playing", body[0]["gamestate"])
	assert.Equal(t, "offline", body[1]["status"])
	assert.Equal(t, "down", body[1]["error_message"])
}

func TestPatronRoutes(t *testing.T) {
	srv := New("127.0.0.1", 0, Deps{Patrons: stubPatrons{
		ids:     []string{"11", "12"},
		patrons: map[int64]bool{11: true},
	}})

	rec := serve(t, srv, "/v3/discord/patrons")
	require.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ids))
	assert.Equal(t, []string{"11", "12"}, ids)

	rec = serve(t, srv, "/v3/discord/patrons/11")
	require.Equal(t, http.StatusOK, rec.Code)
	var patron handlers.PatronResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&patron))
	assert.Equal(t, handlers.PatronResponse{ID: "11", Patron: true}, patron)

	rec = serve(t, srv, "/v3/discord/patrons/99")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&patron))
	assert.False(t, patron.Patron)

	rec = serve(t, srv, "/v3/discord/patrons/not-a-number")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, rec).Error.Code)
}

func TestPatronRoutesMapDiscordErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{discord.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{discord.ErrNotConfigured, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("discord get_member: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{&discord.APIError{Code: 50001, Message: "Missing Access"}, http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			srv := New("127.0.0.1", 0, Deps{Patrons: stubPatrons{err: tt.err}})

			rec := serve(t, srv, "/v3/discord/patrons/5")
			require.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestRoutesOmittedWithoutDeps(t *testing.T) {
	srv := New("127.0.0.1", 0, Deps{})

	assert.Equal(t, http.StatusNotFound, serve(t, srv, "/v3/server").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, srv, "/v3/discord/patrons").Code)
}

func TestRateLimitsRoute(t *testing.T) {
	bucket := ratelimit.New(5, 1100*time.Millisecond, ratelimit.WithName("discord_get_member"))
	permit, err := bucket.Acquire(context.Background())
	require.NoError(t, err)
	defer permit.Release()

	srv := New("127.0.0.1", 0, Deps{RateLimits: []*ratelimit.TokenBucket{bucket}})

	rec := serve(t, srv, "/v3/ratelimits")
	require.Equal(t, http.StatusOK, rec.Code)

	var states []ratelimit.State
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&states))
	require.Len(t, states, 1)
	assert.Equal(t, "discord_get_member", states[0].Name)
	assert.Equal(t, 4, states[0].Tokens)
	assert.Equal(t, 4, states[0].Capacity)
	assert.Equal(t, 5, states[0].MaxCapacity)
}
