// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/linkly-crm/leadscout/internal/discovery"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
	DB        DBConfig        `mapstructure:"db"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication. APIKeys maps an API key to the
// owner identity it authenticates; DevOwner is the identity assumed when
// auth is disabled (local development).
type AuthConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	APIKeys  map[string]string `mapstructure:"api_keys"`
	DevOwner string            `mapstructure:"dev_owner"`
}

// DiscoveryConfig governs the discovery pipeline.
type DiscoveryConfig struct {
	// ProviderURL is the search provider base endpoint. Empty disables
	// discovery rather than failing it.
	ProviderURL string `mapstructure:"provider_url"`
	UserAgent   string `mapstructure:"user_agent"`
	// BotToken identifies this crawler in robots.txt User-agent groups: a
	// group applies when its value contains the token (case-insensitive).
	BotToken string `mapstructure:"bot_token"`
	// DefaultLimit is the per-keyword result limit when a request omits one.
	DefaultLimit         int `mapstructure:"default_limit"`
	MaxAttempts          int `mapstructure:"max_attempts"`
	JobConcurrency       int `mapstructure:"job_concurrency"`
	PageConcurrency      int `mapstructure:"page_concurrency"`
	TimeoutSeconds       int `mapstructure:"timeout_seconds"`
	RobotsTimeoutSeconds int `mapstructure:"robots_timeout_seconds"`
}

// DBConfig controls access to Postgres. An empty DSN selects the in-memory
// stores.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LEADSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.dev_owner", "local")
	v.SetDefault("discovery.user_agent", "LeadScoutBot/1.0 (+https://github.com/linkly-crm/leadscout; linkly)")
	v.SetDefault("discovery.bot_token", "linkly")
	v.SetDefault("discovery.default_limit", 20)
	v.SetDefault("discovery.max_attempts", 3)
	v.SetDefault("discovery.job_concurrency", 4)
	v.SetDefault("discovery.page_concurrency", 4)
	v.SetDefault("discovery.timeout_seconds", 15)
	v.SetDefault("discovery.robots_timeout_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Discovery.DefaultLimit < discovery.MinResultLimit || c.Discovery.DefaultLimit > discovery.MaxResultLimit {
		return fmt.Errorf("discovery.default_limit must be between %d and %d",
			discovery.MinResultLimit, discovery.MaxResultLimit)
	}
	if c.Discovery.MaxAttempts <= 0 {
		return fmt.Errorf("discovery.max_attempts must be > 0")
	}
	if c.Discovery.JobConcurrency <= 0 || c.Discovery.PageConcurrency <= 0 {
		return fmt.Errorf("discovery concurrency values must be > 0")
	}
	if c.Discovery.TimeoutSeconds <= 0 {
		return fmt.Errorf("discovery.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout returns the page/provider fetch timeout as a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Discovery.TimeoutSeconds) * time.Second
}

// RobotsTimeout returns the robots.txt fetch timeout as a duration.
func (c Config) RobotsTimeout() time.Duration {
	return time.Duration(c.Discovery.RobotsTimeoutSeconds) * time.Second
}
