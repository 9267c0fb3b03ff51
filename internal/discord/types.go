package discord

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// Discord JSON error codes that mean the user is not in the guild.
const (
	CodeUnknownMember = 10007
	CodeUnknownUser   = 10013
)

var (
	// ErrRateLimited is returned when Discord answers 429 Too Many Requests.
	ErrRateLimited = errors.New("discord: rate limited")

	// ErrNotConfigured is returned when the client has no token or guild.
	ErrNotConfigured = errors.New("discord: client is not configured")
)

// APIError is an error message returned in a Discord response body.
type APIError struct {
	Status  int    `json:"-"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord: %s (code %d)", e.Message, e.Code)
}

// IsUnknownMember reports whether err says the user is not a guild member.
func IsUnknownMember(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == CodeUnknownMember || apiErr.Code == CodeUnknownUser
}

// User is a Discord user object.
type User struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	Discriminator string  `json:"discriminator"`
	GlobalName    *string `json:"global_name"`
	Avatar        *string `json:"avatar"`
}

// GuildMember is a Discord guild member object.
type GuildMember struct {
	Roles []string `json:"roles"`
	User  User     `json:"user"`
}

// HasRole reports whether the member holds roleID.
func (m *GuildMember) HasRole(roleID int64) bool {
	return slices.Contains(m.Roles, strconv.FormatInt(roleID, 10))
}

// MemberSearchQuery is the body of a guild members-search request.
type MemberSearchQuery struct {
	OrQuery  map[string]any `json:"or_query"`
	AndQuery map[string]any `json:"and_query"`
	Limit    int            `json:"limit"`
}

// RoleQuery matches members holding roleID.
func RoleQuery(roleID int64, limit int) MemberSearchQuery {
	return MemberSearchQuery{
		OrQuery: map[string]any{},
		AndQuery: map[string]any{
			"role_ids": map[string]any{
				"and_query": []string{strconv.FormatInt(roleID, 10)},
			},
		},
		Limit: limit,
	}
}

type searchResponse struct {
	Members []struct {
		Member GuildMember `json:"member"`
	} `json:"members"`
}
