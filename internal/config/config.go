package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ehr/burnout/internal/platform/auth"
	"github.com/ehr/burnout/internal/platform/export"
)

type Config struct {
	Env           string `mapstructure:"ENV"`
	LogLevel      string `mapstructure:"LOG_LEVEL"`
	OutputDir     string `mapstructure:"OUTPUT_DIR"`
	OutputFormats string `mapstructure:"OUTPUT_FORMATS"`
	Seed          int64  `mapstructure:"SEED"`
	Port          string `mapstructure:"PORT"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	DBSchema      string `mapstructure:"DB_SCHEMA"`

	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RegenerateRPS   float64       `mapstructure:"REGENERATE_RPS"`
	RegenerateBurst int           `mapstructure:"REGENERATE_BURST"`

	APISigningKey  string `mapstructure:"API_SIGNING_KEY"`
	APITokenIssuer string `mapstructure:"API_TOKEN_ISSUER"`
}

var keys = []string{
	"ENV", "LOG_LEVEL", "OUTPUT_DIR", "OUTPUT_FORMATS", "SEED", "PORT",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REQUEST_TIMEOUT", "REGENERATE_RPS", "REGENERATE_BURST",
	"API_SIGNING_KEY", "API_TOKEN_ISSUER",
}

// Load reads configuration from an optional .env file and the environment.
// Nothing is required at this point; commands that touch Postgres call
// RequireDatabase.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OUTPUT_DIR", "data")
	v.SetDefault("OUTPUT_FORMATS", "csv")
	v.SetDefault("SEED", 0)
	v.SetDefault("PORT", "8000")
	v.SetDefault("DB_MAX_CONNS", 5)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("DB_SCHEMA", "workforce")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("REGENERATE_RPS", 0.5)
	v.SetDefault("REGENERATE_BURST", 3)
	v.SetDefault("API_TOKEN_ISSUER", "burnout-gen")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Formats parses OUTPUT_FORMATS, a comma-separated list such as "csv,xlsx".
func (c *Config) Formats() ([]export.Format, error) {
	return export.ParseFormats(strings.Split(c.OutputFormats, ","))
}

// Level parses LOG_LEVEL, falling back to info for an empty value.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return lvl, nil
}

// RequireDatabase reports an error when no DATABASE_URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Validate checks values that would otherwise fail late, halfway through a
// run.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if _, err := c.Formats(); err != nil {
		return fmt.Errorf("OUTPUT_FORMATS: %w", err)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DBSchema == "" {
		return fmt.Errorf("DB_SCHEMA must not be empty")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.RegenerateRPS <= 0 || c.RegenerateBurst <= 0 {
		return fmt.Errorf("REGENERATE_RPS and REGENERATE_BURST must be positive")
	}
	if c.APISigningKey != "" && len(c.APISigningKey) < 32 {
		return fmt.Errorf("API_SIGNING_KEY must be at least 32 characters, got %d", len(c.APISigningKey))
	}
	return nil
}

// JWT returns the token settings for the write routes.
func (c *Config) JWT() auth.JWTConfig {
	return auth.JWTConfig{Issuer: c.APITokenIssuer, SigningKey: []byte(c.APISigningKey)}
}
