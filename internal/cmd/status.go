package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stationlink/stationlink/internal/output"
	"github.com/stationlink/stationlink/internal/servers"
)

var statusAddress string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query game server status",
	Long: `Query game server status over the topic protocol.

Without --address every configured server is polled concurrently and
summarized. With --address a single server is queried and its full
status reply is shown.`,
	Example: `  stationlink status
  stationlink status --output-format json
  stationlink status --address 127.0.0.1:1337`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		client := newTopicClient(cfg)

		if address := strings.TrimSpace(statusAddress); address != "" {
			status, err := client.Status(cmd.Context(), address)
			if err != nil {
				return fmt.Errorf("query %s: %w", address, err)
			}
			return writeFormatted(cmd, func(f output.Formatter) (string, error) {
				return f.FormatStatus(address, status)
			})
		}

		if len(cfg.Servers) == 0 {
			return fmt.Errorf("no servers configured; pass --address or add servers to the config file")
		}

		list := newAggregator(cfg, client, servers.WithTTL(0)).Status(cmd.Context())
		return writeFormatted(cmd, func(f output.Formatter) (string, error) {
			return f.FormatServers(list)
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusAddress, "address", "a", "", "query a single server at host:port")
	addOutputFlags(statusCmd)
}
