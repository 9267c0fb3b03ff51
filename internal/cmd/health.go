package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	errwrap "github.com/stationlink/stationlink/internal/errors"
	"github.com/stationlink/stationlink/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Verify version info and configuration so the API can start.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger

		if versionInfo.Version == "" {
			ExitWithCode(logger, foundry.ExitFailure, "Version information missing",
				errwrap.NewInternalError("version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))

		cfg := loadConfig()
		logger.Info("Configuration valid",
			zap.Int("servers", len(cfg.Servers)),
			zap.Bool("discord_configured", cfg.Discord.Token != "" && cfg.Discord.Guild != 0))

		fmt.Fprintln(cmd.OutOrStdout(), "ok")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
