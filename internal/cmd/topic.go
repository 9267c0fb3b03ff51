package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/stationlink/stationlink/internal/topic"
)

var topicRaw bool

var topicCmd = &cobra.Command{
	Use:   "topic <address> <query>",
	Short: "Send a raw topic query to a server",
	Long: `Send one topic query to a game server and print the decoded reply.

String replies that look like key=value&... records are expanded one pair
per line unless --raw is set.`,
	Example: `  stationlink topic 127.0.0.1:1337 '?status'
  stationlink topic 127.0.0.1:1337 '?ping' --raw`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		address, query := args[0], args[1]

		resp, err := newTopicClient(cfg).Query(cmd.Context(), address, query)
		if err != nil {
			return fmt.Errorf("query %s: %w", address, err)
		}

		out := cmd.OutOrStdout()
		if topicRaw {
			_, err = fmt.Fprintln(out, resp.String())
			return err
		}

		lines := []string{fmt.Sprintf("%s %s", address, query), ""}
		lines = append(lines, describeResponse(resp)...)
		_, err = fmt.Fprint(out, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

// describeResponse renders a reply as display lines.
func describeResponse(resp topic.Response) []string {
	switch resp.Kind {
	case topic.KindFloat:
		return []string{"float: " + strconv.FormatFloat(float64(resp.Number), 'g', -1, 32)}
	case topic.KindString:
		if !strings.Contains(resp.Text, "=") {
			return []string{"string: " + resp.Text}
		}
		var lines []string
		for _, pair := range strings.Split(resp.Text, "&") {
			key, value, _ := strings.Cut(pair, "=")
			if k, err := url.QueryUnescape(key); err == nil {
				key = k
			}
			if v, err := url.QueryUnescape(value); err == nil {
				value = v
			}
			if key != "" {
				lines = append(lines, fmt.Sprintf("%s = %s", key, value))
			}
		}
		return lines
	default:
		return []string{"(null)"}
	}
}

func init() {
	rootCmd.AddCommand(topicCmd)
	topicCmd.Flags().BoolVar(&topicRaw, "raw", false, "print the decoded reply without formatting")
}
