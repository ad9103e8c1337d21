// Package config loads application settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"go-simpler.org/env"
)

// Config holds the application configuration.
type Config struct {
	AppEnv string `env:"APP_ENV" default:"development"`
	Port   string `env:"PORT" default:"8080"`

	DBDriver    string `env:"DB_DRIVER" default:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" default:"localhost"`
	DBPort      string `env:"DB_PORT" default:"5432"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	DBSSLMode   string `env:"DB_SSLMODE" default:"disable"`
	SQLitePath  string `env:"SQLITE_PATH" default:"hasker.db"`

	JWTSecret string `env:"JWT_SECRET"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"console"`

	CORSOrigins string `env:"CORS_ORIGINS" default:"*"`

	PageSize      int `env:"PAGE_SIZE" default:"10"`
	TrendingCount int `env:"TRENDING_COUNT" default:"5"`
	MaxTags       int `env:"MAX_TAGS" default:"3"`
	MaxTagLength  int `env:"MAX_TAG_LENGTH" default:"128"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM"`
	PublicBaseURL    string `env:"PUBLIC_BASE_URL" default:"http://localhost:8080"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres":
		if c.DatabaseURL == "" && (c.DBUser == "" || c.DBName == "") {
			return errors.New("DATABASE_URL or DB_USER and DB_NAME are required for postgres")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required for sqlite")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}

	if c.PageSize < 1 {
		return errors.New("PAGE_SIZE must be positive")
	}
	if c.TrendingCount < 1 {
		return errors.New("TRENDING_COUNT must be positive")
	}
	if c.MaxTags < 0 || c.MaxTagLength < 1 {
		return errors.New("MAX_TAGS must be >= 0 and MAX_TAG_LENGTH must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PostgresDSN builds the connection string, preferring DATABASE_URL.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// TwilioEnabled reports whether SMS notifications can be sent.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}
