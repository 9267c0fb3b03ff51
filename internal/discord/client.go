// Package discord is a small Discord REST client for guild membership and
// supporter role checks. Every request passes through the shared token
// buckets before it reaches the network.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
	"github.com/stationlink/stationlink/internal/ratelimit"
)

// DefaultBaseURL is the versioned Discord REST endpoint.
const DefaultBaseURL = "https://discord.com/api/v10"

// PatronSearchLimit caps the number of members returned by Patrons.
const PatronSearchLimit = 1000

const (
	routeGetMember     = "get_member"
	routeSearchMembers = "search_members"
)

// Client talks to the Discord REST API on behalf of one bot and guild.
type Client struct {
	HTTP        *http.Client
	BaseURL     string
	Token       string
	GuildID     int64
	PatreonRole int64
	Buckets     *Buckets
}

// GetGuildMember fetches userID's membership in the configured guild.
func (c *Client) GetGuildMember(ctx context.Context, userID int64) (*GuildMember, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}

	endpoint := c.endpoint("guilds", strconv.FormatInt(c.GuildID, 10), "members", strconv.FormatInt(userID, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var member GuildMember
	if err := c.call(ctx, c.Buckets.GetMember, routeGetMember, req, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// SearchMembers runs a members-search query and returns matching user IDs.
func (c *Client) SearchMembers(ctx context.Context, query MemberSearchQuery) ([]string, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode member search: %w", err)
	}

	endpoint := c.endpoint("guilds", strconv.FormatInt(c.GuildID, 10), "members-search")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp searchResponse
	if err := c.call(ctx, c.Buckets.SearchMembers, routeSearchMembers, req, &resp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Members))
	for _, m := range resp.Members {
		ids = append(ids, m.Member.User.ID)
	}
	return ids, nil
}

// IsPatron reports whether userID holds the supporter role. Users outside
// the guild are not patrons.
func (c *Client) IsPatron(ctx context.Context, userID int64) (bool, error) {
	member, err := c.GetGuildMember(ctx, userID)
	if err != nil {
		if IsUnknownMember(err) {
			return false, nil
		}
		return false, err
	}
	return member.HasRole(c.PatreonRole), nil
}

// Patrons lists the user IDs holding the supporter role.
func (c *Client) Patrons(ctx context.Context) ([]string, error) {
	return c.SearchMembers(ctx, RoleQuery(c.PatreonRole, PatronSearchLimit))
}

// call sends req once under the global bucket and the route bucket and
// decodes a successful body into out. Both permits are held until the
// response body has been read.
func (c *Client) call(ctx context.Context, route *ratelimit.TokenBucket, routeName string, req *http.Request, out any) error {
	global, err := acquire(ctx, c.Buckets.Global)
	if err != nil {
		return err
	}
	defer global.Release()

	permit, err := acquire(ctx, route)
	if err != nil {
		return err
	}
	defer permit.Release()

	req.Header.Set("Authorization", "Bot "+c.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("discord %s: %w", routeName, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	metrics.RecordDiscordRequest(routeName, resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests {
		if logger := observability.Logger(); logger != nil {
			logger.Warn("Discord API rate limited request",
				zap.String("route", routeName),
				zap.String("retry_after", resp.Header.Get("Retry-After")),
				zap.String("scope", resp.Header.Get("X-RateLimit-Scope")))
		}
		return ErrRateLimited
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("discord %s: read body: %w", routeName, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(body, out); err == nil {
			return nil
		}
	}
	return decodeError(routeName, resp.StatusCode, body)
}

func acquire(ctx context.Context, bucket *ratelimit.TokenBucket) (*ratelimit.Permit, error) {
	start := time.Now()
	permit, err := bucket.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordRateLimitWait(bucket.Name(), time.Since(start))
	return permit, nil
}

func decodeError(routeName string, status int, body []byte) error {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		return fmt.Errorf("discord %s: unexpected response (status %d): %s", routeName, status, truncate(body, 200))
	}
	return apiErr
}

func truncate(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func (c *Client) configured() error {
	if c == nil || strings.TrimSpace(c.Token) == "" || c.GuildID == 0 || c.Buckets == nil {
		return ErrNotConfigured
	}
	return nil
}

func (c *Client) endpoint(segments ...string) string {
	base := DefaultBaseURL
	if c.BaseURL != "" {
		base = c.BaseURL
	}
	path, _ := url.JoinPath(base, segments...)
	return path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}
