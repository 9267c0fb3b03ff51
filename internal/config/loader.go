// Package config provides centralized configuration management for stationlink.
// Settings are read through viper and decoded into typed structs with
// go-viper/mapstructure.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides, e.g.
// STATIONLINK_DISCORD_TOKEN for discord.token.
const EnvPrefix = "STATIONLINK"

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.watch_config", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Cache defaults
	v.SetDefault("cache.server_status_ttl", "30s")
	v.SetDefault("cache.warm_schedule", "")

	// Topic defaults
	v.SetDefault("topic.timeout", "5s")

	v.SetDefault("servers", []map[string]any{})

	// Discord defaults; buckets follow Discord's documented limits with a
	// small margin on the interval.
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.guild", 0)
	v.SetDefault("discord.patreon_role", 0)
	v.SetDefault("discord.base_url", "https://discord.com/api/v10")
	v.SetDefault("discord.rate_limits.global.capacity", 50)
	v.SetDefault("discord.rate_limits.global.interval", "1.1s")
	v.SetDefault("discord.rate_limits.get_member.capacity", 5)
	v.SetDefault("discord.rate_limits.get_member.interval", "1.1s")
	v.SetDefault("discord.rate_limits.search_members.capacity", 10)
	v.SetDefault("discord.rate_limits.search_members.interval", "10.1s")
}

// BindEnv enables STATIONLINK_* environment overrides on v.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the settings held by v.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store the loaded config
	setConfig(cfg)

	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Servers))
	for i, server := range c.Servers {
		name := strings.TrimSpace(server.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: name is required", i))
		} else if seen[name] {
			errs = append(errs, fmt.Errorf("servers[%d]: duplicate name %q", i, name))
		}
		seen[name] = true

		if _, _, err := net.SplitHostPort(server.Address); err != nil {
			errs = append(errs, fmt.Errorf("servers[%d]: invalid address %q: %w", i, server.Address, err))
		}
	}

	if c.Cache.WarmSchedule != "" {
		if _, err := cron.ParseStandard(c.Cache.WarmSchedule); err != nil {
			errs = append(errs, fmt.Errorf("cache.warm_schedule: %w", err))
		}
	}

	if c.Topic.Timeout < 0 {
		errs = append(errs, errors.New("topic.timeout must not be negative"))
	}

	buckets := map[string]BucketConfig{
		"global":         c.Discord.RateLimits.Global,
		"get_member":     c.Discord.RateLimits.GetMember,
		"search_members": c.Discord.RateLimits.SearchMembers,
	}
	for _, name := range []string{"global", "get_member", "search_members"} {
		bucket := buckets[name]
		if bucket.Capacity <= 0 {
			errs = append(errs, fmt.Errorf("discord.rate_limits.%s.capacity must be positive", name))
		}
		if bucket.Interval <= 0 {
			errs = append(errs, fmt.Errorf("discord.rate_limits.%s.interval must be positive", name))
		}
	}

	return errors.Join(errs...)
}

// TopicTimeout returns the configured topic timeout or the protocol default.
func (c *Config) TopicTimeout() time.Duration {
	if c.Topic.Timeout > 0 {
		return c.Topic.Timeout
	}
	return 5 * time.Second
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}
