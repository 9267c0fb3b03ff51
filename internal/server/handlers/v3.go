package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stationlink/stationlink/internal/discord"
	apperrors "github.com/stationlink/stationlink/internal/errors"
	"github.com/stationlink/stationlink/internal/ratelimit"
	"github.com/stationlink/stationlink/internal/servers"
)

// ServerStatusSource yields the aggregated game server list.
type ServerStatusSource interface {
	Status(ctx context.Context) []servers.Server
}

// PatronSource answers supporter role questions.
type PatronSource interface {
	Patrons(ctx context.Context) ([]string, error)
	IsPatron(ctx context.Context, userID int64) (bool, error)
}

// PatronResponse is the body of GET /v3/discord/patrons/{id}.
type PatronResponse struct {
	ID     string `json:"id"`
	Patron bool   `json:"patron"`
}

// ServerStatusHandler serves GET /v3/server.
func ServerStatusHandler(source ServerStatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, source.Status(r.Context()))
	}
}

// PatronsHandler serves GET /v3/discord/patrons.
func PatronsHandler(source PatronSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := source.Patrons(r.Context())
		if err != nil {
			apperrors.RespondWithError(w, r, discordError(r.Context(), err))
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, ids)
	}
}

// PatronHandler serves GET /v3/discord/patrons/{id}.
func PatronHandler(source PatronSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			apperrors.RespondWithError(w, r, apperrors.NewInvalidInputError("id must be a Discord user ID"))
			return
		}

		patron, err := source.IsPatron(r.Context(), id)
		if err != nil {
			apperrors.RespondWithError(w, r, discordError(r.Context(), err))
			return
		}
		writeJSON(w, http.StatusOK, PatronResponse{ID: raw, Patron: patron})
	}
}

// RateLimitsHandler serves GET /v3/ratelimits.
func RateLimitsHandler(buckets ...*ratelimit.TokenBucket) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states := make([]ratelimit.State, 0, len(buckets))
		for _, b := range buckets {
			if b != nil {
				states = append(states, b.Snapshot())
			}
		}
		writeJSON(w, http.StatusOK, states)
	}
}

func discordError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, discord.ErrRateLimited):
		return apperrors.WrapRateLimited(ctx, err, "Discord API rate limit reached")
	case errors.Is(err, discord.ErrNotConfigured):
		return apperrors.NewServiceUnavailableError("Discord integration is not configured")
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.WrapTimeout(ctx, err, "Discord API request timed out")
	default:
		return apperrors.WrapExternalService(ctx, err, "Discord API request failed")
	}
}
