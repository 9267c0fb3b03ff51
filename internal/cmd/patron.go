package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
)

var patronCmd = &cobra.Command{
	Use:   "patron [discord-id]",
	Short: "Check Discord supporter role membership",
	Long: `Without arguments, list every guild member holding the configured
supporter role. With a Discord user ID, report whether that user holds it.

Requests share the same rate limit buckets the HTTP API uses.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		client := newDiscordClient(cfg, newDiscordBuckets(cfg))
		out := cmd.OutOrStdout()

		if len(args) == 1 {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid discord id %q: %w", args[0], err)
			}
			patron, err := client.IsPatron(cmd.Context(), id)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "%d patron=%t\n", id, patron)
			return err
		}

		ids, err := client.Patrons(cmd.Context())
		if err != nil {
			return err
		}

		lines := []string{fmt.Sprintf("Patrons (%d)", len(ids)), ""}
		if len(ids) == 0 {
			lines = append(lines, "(none)")
		}
		lines = append(lines, ids...)
		_, err = fmt.Fprint(out, ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return err
	},
}

func init() {
	rootCmd.AddCommand(patronCmd)
}
