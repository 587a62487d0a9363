// Package config loads application configuration from YAML files and
// environment variables. Environment variables win over file values; a
// local .env file is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/sitewatch/sitewatch/internal/database"
	"github.com/sitewatch/sitewatch/internal/indexing"
	"github.com/sitewatch/sitewatch/internal/logger"
)

// Server defaults
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 15 * time.Second
	defaultServerWriteTimeout = 15 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// CrawlerConfig holds crawl-wide behavior settings.
type CrawlerConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	Tenant    string `mapstructure:"tenant"`
}

// SecretsConfig holds credential encryption settings. The encryption secret
// only arrives through the environment; it has no file or default value.
type SecretsConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig    `mapstructure:"server"`
	Database      database.Config `mapstructure:"database"`
	Logger        logger.Config   `mapstructure:"logger"`
	Crawler       CrawlerConfig   `mapstructure:"crawler"`
	Secrets       SecretsConfig   `mapstructure:"secrets"`
	Elasticsearch indexing.Config `mapstructure:"elasticsearch"`
}

// Validate checks the configuration for values the application cannot run
// without.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address must not be empty")
	}
	if c.Database.Host == "" {
		return errors.New("database.host must not be empty")
	}
	if c.Secrets.EncryptionKey == "" {
		return errors.New("secrets.encryption_key must be set (SITEWATCH_ENCRYPTION_KEY)")
	}
	return nil
}

// Load reads configuration from the optional config file at path (or the
// default search paths when path is empty), layered under environment
// variables.
func Load(path string) (*Config, error) {
	// Ignore a missing .env file; explicit environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if readErr := v.ReadInConfig(); readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	cfg := &Config{}
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDevelopmentLogging(v, cfg)

	return cfg, nil
}

// setDefaults applies production-safe default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server", map[string]any{
		"address":       defaultServerAddress,
		"read_timeout":  defaultServerReadTimeout.String(),
		"write_timeout": defaultServerWriteTimeout.String(),
		"idle_timeout":  defaultServerIdleTimeout.String(),
	})

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "json",
		"development": false,
	})

	v.SetDefault("database", map[string]any{
		"host":    "localhost",
		"port":    "5432",
		"user":    "sitewatch",
		"dbname":  "sitewatch",
		"sslmode": "disable",
	})

	v.SetDefault("crawler", map[string]any{
		"tenant": "default",
	})

	v.SetDefault("elasticsearch", map[string]any{
		"addresses": []string{"http://127.0.0.1:9200"},
		"index":     "sitewatch_documents",
	})
}

// bindEnvironmentVariables binds explicit environment variable names to
// config keys.
func bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string][]string{
		"logger.level":           {"LOG_LEVEL"},
		"logger.encoding":        {"LOG_FORMAT"},
		"database.host":          {"DATABASE_HOST"},
		"database.port":          {"DATABASE_PORT"},
		"database.user":          {"DATABASE_USER"},
		"database.password":      {"DATABASE_PASSWORD"},
		"database.dbname":        {"DATABASE_NAME"},
		"database.sslmode":       {"DATABASE_SSLMODE"},
		"secrets.encryption_key": {"SITEWATCH_ENCRYPTION_KEY"},
		"elasticsearch.addresses": {
			"ELASTICSEARCH_ADDRESSES", "ELASTICSEARCH_HOSTS",
		},
		"elasticsearch.username": {"ELASTICSEARCH_USERNAME"},
		"elasticsearch.password": {"ELASTIC_PASSWORD", "ELASTICSEARCH_PASSWORD"},
		"elasticsearch.index":    {"ELASTICSEARCH_INDEX"},
	}

	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	return nil
}

// applyDevelopmentLogging upgrades logging when APP_DEBUG or a development
// APP_ENV is set. Debug level and development formatting are independent:
// debug logs can be enabled in production without console formatting.
func applyDevelopmentLogging(v *viper.Viper, cfg *Config) {
	_ = v.BindEnv("app.debug", "APP_DEBUG")
	_ = v.BindEnv("app.environment", "APP_ENV")

	if v.GetBool("app.debug") {
		cfg.Logger.Level = "debug"
	}
	if v.GetString("app.environment") == "development" {
		cfg.Logger.Development = true
		cfg.Logger.Encoding = "console"
	}
}
