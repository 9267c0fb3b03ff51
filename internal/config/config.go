package config

import "time"

// Config represents the complete application configuration.
// Values come from, in increasing precedence: built-in defaults, the YAML
// config file, STATIONLINK_* environment variables, and command-line flags.
type Config struct {
	Server  ServerConfig       `mapstructure:"server"`
	Logging LoggingConfig      `mapstructure:"logging"`
	Metrics MetricsConfig      `mapstructure:"metrics"`
	Cache   CacheConfig        `mapstructure:"cache"`
	Topic   TopicConfig        `mapstructure:"topic"`
	Servers []GameServerConfig `mapstructure:"servers"`
	Discord DiscordConfig      `mapstructure:"discord"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// WatchConfig reloads the config file whenever it changes on disk
	WatchConfig bool `mapstructure:"watch_config"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether metrics are exposed
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated metrics endpoint port (Prometheus format)
	Port int `mapstructure:"port"`
}

// CacheConfig contains in-memory cache TTLs.
type CacheConfig struct {
	ServerStatusTTL time.Duration `mapstructure:"server_status_ttl"`

	// WarmSchedule is a cron expression for refreshing server status in the
	// background, e.g. "@every 30s". Empty disables it.
	WarmSchedule string `mapstructure:"warm_schedule"`
}

// TopicConfig configures the game server topic client.
type TopicConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

// GameServerConfig describes one game server to poll.
type GameServerConfig struct {
	// Name is the display name of the server
	Name string `mapstructure:"name"`

	// Address is the internal host:port used for topic queries
	Address string `mapstructure:"address"`

	// ConnectionAddress is the public address players connect to
	ConnectionAddress string `mapstructure:"connection_address"`

	// ErrorMessage is shown while the server is offline
	ErrorMessage string `mapstructure:"error_message"`
}

// DiscordConfig contains Discord API settings.
type DiscordConfig struct {
	Token       string           `mapstructure:"token"`
	Guild       int64            `mapstructure:"guild"`
	PatreonRole int64            `mapstructure:"patreon_role"`
	BaseURL     string           `mapstructure:"base_url"`
	RateLimits  DiscordRateLimit `mapstructure:"rate_limits"`
}

// DiscordRateLimit holds one bucket per Discord rate limit scope.
type DiscordRateLimit struct {
	Global        BucketConfig `mapstructure:"global"`
	GetMember     BucketConfig `mapstructure:"get_member"`
	SearchMembers BucketConfig `mapstructure:"search_members"`
}

// BucketConfig sizes a token bucket.
type BucketConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Interval time.Duration `mapstructure:"interval"`
}
