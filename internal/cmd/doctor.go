package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/config"
	"github.com/stationlink/stationlink/internal/observability"
)

const doctorProbeTimeout = 2 * time.Second

// doctorCheck reports a short result line and whether the check passed.
type doctorCheck struct {
	name string
	run  func(ctx context.Context) (string, bool)
}

var (
	doctorInitForce bool
	doctorInitToken string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, the config file and every configured game server.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		logger.Info("=== " + BinaryName + " doctor ===")
		logger.Info("")

		checks := doctorChecks()
		allPassed := true
		for i, check := range checks {
			detail, ok := check.run(cmd.Context())
			line := fmt.Sprintf("[%d/%d] Checking %s... ", i+1, len(checks), check.name)
			if ok {
				logger.Info(line + "✅ " + detail)
				continue
			}
			allPassed = false
			logger.Warn(line + "⚠️  " + detail)
		}

		logger.Info("")
		if allPassed {
			logger.Info("✅ All checks passed!")
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
	},
}

func doctorChecks() []doctorCheck {
	return []doctorCheck{
		{name: "Go runtime", run: func(context.Context) (string, bool) {
			return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH), true
		}},
		{name: "Crucible access", run: func(context.Context) (string, bool) {
			v := crucible.GetVersion()
			if v.Crucible == "" || v.Gofulmen == "" {
				return "cannot resolve Crucible or Gofulmen version", false
			}
			return fmt.Sprintf("crucible v%s, gofulmen v%s", v.Crucible, v.Gofulmen), true
		}},
		{name: "config file", run: func(context.Context) (string, bool) {
			if used := viper.ConfigFileUsed(); fileExists(used) {
				return used, true
			}
			return "none found (run '" + BinaryName + " doctor init')", false
		}},
		{name: "game servers", run: checkGameServers},
		{name: "Discord", run: func(context.Context) (string, bool) {
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return "skipped (config invalid)", false
			}
			if cfg.Discord.Token == "" || cfg.Discord.Guild == 0 {
				return "not configured (" + config.EnvPrefix + "_DISCORD_TOKEN " + envStatus(config.EnvPrefix+"_DISCORD_TOKEN") + ")", false
			}
			if cfg.Discord.PatreonRole == 0 {
				return "patreon_role not set", false
			}
			return fmt.Sprintf("guild %d", cfg.Discord.Guild), true
		}},
	}
}

// checkGameServers loads the config and probes each server once.
func checkGameServers(ctx context.Context) (string, bool) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return "config invalid: " + err.Error(), false
	}
	if len(cfg.Servers) == 0 {
		return "none configured", false
	}

	client := newTopicClient(cfg)
	if client.Timeout > doctorProbeTimeout {
		client.Timeout = doctorProbeTimeout
	}

	var down []string
	for _, s := range cfg.Servers {
		if _, err := client.Status(ctx, s.Address); err != nil {
			observability.CLILogger.Debug("Server probe failed", zap.String("server", s.Name), zap.Error(err))
			down = append(down, s.Name)
		}
	}
	if len(down) > 0 {
		return fmt.Sprintf("%d/%d unreachable: %s", len(down), len(cfg.Servers), strings.Join(down, ", ")), false
	}
	return fmt.Sprintf("%d reachable", len(cfg.Servers)), true
}

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := defaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if fileExists(configPath) && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		token := strings.TrimSpace(doctorInitToken)
		if strings.EqualFold(token, "prompt") {
			value, err := promptForValue(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter Discord bot token (leave blank to skip): ")
			if err != nil {
				return err
			}
			token = value
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0644)
		if token != "" {
			mode = 0600
		}
		if err := os.WriteFile(configPath, []byte(buildInitConfig(token)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		used := viper.ConfigFileUsed()
		if !fileExists(used) {
			return fmt.Errorf("no config file found")
		}
		if _, err := config.Load(viper.GetViper()); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", used))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd, doctorValidateCmd)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitToken, "discord-token", "", "Discord bot token to store (use 'prompt' to enter it interactively)")
}

// defaultConfigPath is the user-level config file read when --config is unset.
func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, BinaryName, "config.yaml")
}

func buildInitConfig(token string) string {
	lines := []string{
		"# " + BinaryName + " config - created by '" + BinaryName + " doctor init'",
		"server:",
		"  host: localhost",
		"  port: 8080",
		"cache:",
		"  server_status_ttl: 30s",
		"topic:",
		"  timeout: 5s",
		"servers:",
		"  - name: Main",
		"    address: 127.0.0.1:1337",
		"    connection_address: byond://127.0.0.1:1337",
		"    error_message: Main is offline",
		"discord:",
		"  guild: 0",
		"  patreon_role: 0",
	}

	if token != "" {
		lines = append(lines, fmt.Sprintf("  token: %q", token))
	} else {
		lines = append(lines, "  # token: \"\"  # Set via "+config.EnvPrefix+"_DISCORD_TOKEN or uncomment")
	}

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
