// Package config loads the settings of an admin host from a YAML file and
// FORGEADMIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/options"
	"github.com/saritasa-nest/saritasa-forge-admin-sub001/internal/store"
)

// EnvPrefix prefixes environment overrides, e.g. FORGEADMIN_DATABASE_DSN.
const EnvPrefix = "FORGEADMIN"

// Config represents the host configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Dialect string `mapstructure:"dialect"`
	DSN     string `mapstructure:"dsn"`
}

// AdminConfig holds the metadata and query limits.
type AdminConfig struct {
	MaxNavigationDepth int    `mapstructure:"max_navigation_depth"`
	DefaultPageSize    int    `mapstructure:"default_page_size"`
	MaxPageSize        int    `mapstructure:"max_page_size"`
	SplitSearchTerms   bool   `mapstructure:"split_search_terms"`
	AllowListPolicy    string `mapstructure:"allow_list_policy"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RedisConfig configures cross-process metadata cache invalidation. An empty
// address disables it.
type RedisConfig struct {
	Addr    string `mapstructure:"addr"`
	Channel string `mapstructure:"channel"`
}

// Load reads path, or forgeadmin.yaml in the working directory when path is
// empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.dialect", "sqlite")
	v.SetDefault("database.dsn", "forgeadmin.db")
	v.SetDefault("admin.max_navigation_depth", 1)
	v.SetDefault("admin.default_page_size", 25)
	v.SetDefault("admin.max_page_size", 500)
	v.SetDefault("admin.split_search_terms", false)
	v.SetDefault("admin.allow_list_policy", "clear")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.channel", "forgeadmin:metadata")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("forgeadmin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := store.ParseDialect(c.Database.Dialect); err != nil {
		return fmt.Errorf("database.dialect: %w", err)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Admin.DefaultPageSize < 1 || c.Admin.MaxPageSize < c.Admin.DefaultPageSize {
		return fmt.Errorf("admin page sizes must satisfy 1 <= default_page_size (%d) <= max_page_size (%d)",
			c.Admin.DefaultPageSize, c.Admin.MaxPageSize)
	}
	if _, err := c.AllowListPolicy(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got: %s", c.Log.Format)
	}
	return nil
}

// AllowListPolicy parses admin.allow_list_policy.
func (c *Config) AllowListPolicy() (options.AllowListPolicy, error) {
	switch strings.ToLower(c.Admin.AllowListPolicy) {
	case "", "clear", "clear-if-empty":
		return options.ClearIfEmpty, nil
	case "keep-all", "keep-all-if-empty":
		return options.KeepAllIfEmpty, nil
	default:
		return 0, fmt.Errorf("admin.allow_list_policy must be clear or keep-all, got: %s", c.Admin.AllowListPolicy)
	}
}

// LogLevel parses log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger returns a logger writing to w in the configured format and level.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
