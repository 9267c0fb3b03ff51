package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/stationlink/stationlink/internal/output"
	"github.com/stationlink/stationlink/internal/ratelimit"
)

var (
	rateLimitURL    string
	rateLimitOutput string
)

var rateLimitCmd = &cobra.Command{
	Use:     "ratelimits",
	Aliases: []string{"rate-limit"},
	Short:   "Show Discord rate limit buckets of a running server",
	Long: `Fetch /v3/ratelimits from a running stationlink server and show the
token and capacity counters of each Discord bucket.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(rateLimitOutput)
		if err != nil {
			return err
		}
		if format != output.FormatJSON && format != output.FormatTable {
			return fmt.Errorf("unsupported output format: %s", format)
		}

		states, err := fetchRateLimits(cmd.Context(), rateLimitURL)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if format == output.FormatJSON {
			payload, err := json.MarshalIndent(states, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(payload))
			return err
		}

		_, err = fmt.Fprint(out, ascii.DrawBox(strings.Join(rateLimitLines(states), "\n"), 0))
		return err
	},
}

func fetchRateLimits(ctx context.Context, baseURL string) ([]ratelimit.State, error) {
	endpoint, err := url.JoinPath(baseURL, "v3", "ratelimits")
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limits: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch rate limits: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var states []ratelimit.State
	if err := json.NewDecoder(resp.Body).Decode(&states); err != nil {
		return nil, fmt.Errorf("decode rate limits: %w", err)
	}
	return states, nil
}

func rateLimitLines(states []ratelimit.State) []string {
	lines := []string{"Rate Limits", ""}
	if len(states) == 0 {
		return append(lines, "(no rate limit buckets)")
	}
	for _, s := range states {
		lines = append(lines, fmt.Sprintf("%s: tokens=%d capacity=%d/%d refill=%s",
			s.Name, s.Tokens, s.Capacity, s.MaxCapacity, s.RefillInterval))
	}
	return lines
}

func init() {
	rootCmd.AddCommand(rateLimitCmd)

	rateLimitCmd.Flags().StringVar(&rateLimitURL, "url", "http://localhost:8080", "base URL of the running server")
	rateLimitCmd.Flags().StringVar(&rateLimitOutput, "output-format", string(output.FormatTable), "Output format: table|json")
}
