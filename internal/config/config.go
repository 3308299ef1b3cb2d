// Package config loads application configuration from file, environment
// and defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Version is the application version, set at build time.
var Version = "dev"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Overseerr OverseerrConfig  `mapstructure:"overseerr"`
	Jellyfin  []EndpointConfig `mapstructure:"jellyfin"`
	Tautulli  []EndpointConfig `mapstructure:"tautulli"`
	Retention RetentionConfig  `mapstructure:"retention"`
	Sync      SyncConfig       `mapstructure:"sync"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// OverseerrConfig holds the request-discovery service connection.
type OverseerrConfig struct {
	URL     string `mapstructure:"url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// EndpointConfig is a watch-activity service connection (Jellyfin or
// Tautulli instance).
type EndpointConfig struct {
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// RetentionConfig controls deletion-candidate selection.
type RetentionConfig struct {
	ThresholdDays  int `mapstructure:"threshold_days"`
	LookbackMonths int `mapstructure:"lookback_months"` // playback-activity query window
}

// SyncConfig controls the background sync schedule.
type SyncConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.lunager")
	}

	v.SetEnvPrefix("LUNAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8484)

	v.SetDefault("database.path", "./data/lunager.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("overseerr.timeout", 30)

	// Three 30-day months of inactivity, two months of playback history.
	v.SetDefault("retention.threshold_days", 90)
	v.SetDefault("retention.lookback_months", 2)

	v.SetDefault("sync.cron", "0 4 * * *")
	v.SetDefault("sync.run_on_start", false)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
