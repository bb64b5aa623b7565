// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// JWT signing secret. Required by the API server and verify-secret.
	JWTSecret string
	// AnonKey is the public token verify-secret checks against JWTSecret.
	AnonKey string

	// Server
	Debug      bool
	Port       string
	TLSDomains []string

	// Game rules
	SeasonYear int
	MinRiders  int
	MaxRiders  int
	RulesFile  string

	// ProCyclingStats fetching
	PCSBaseURL       string
	PCSCookie        string
	PCSCookiesJSON   string
	PCSBypass        bool
	FetchConcurrency int
	FetchTimeout     time.Duration
	FetchRetries     int

	// Store limits
	ResultsPageSize int
	BatchSize       int
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() (*Config, error) {
	v := newViper()

	// Defaults
	v.SetDefault("DB_USER", "megabike")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "megabike")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "megabike.app,www.megabike.app")
	v.SetDefault("DEBUG", false)
	v.SetDefault("SEASON_YEAR", time.Now().UTC().Year())
	v.SetDefault("MIN_RIDERS", 5)
	v.SetDefault("MAX_RIDERS", 12)
	v.SetDefault("RULES_FILE", "rules.yaml")
	v.SetDefault("PCS_BASE_URL", "https://www.procyclingstats.com")
	v.SetDefault("PCS_BYPASS", true)
	v.SetDefault("FETCH_CONCURRENCY", 8)
	v.SetDefault("FETCH_TIMEOUT", "30s")
	v.SetDefault("FETCH_RETRIES", 3)
	v.SetDefault("RESULTS_PAGE_SIZE", 1000)
	v.SetDefault("BATCH_SIZE", 500)

	cfg := &Config{
		DatabaseURL:      v.GetString("DATABASE_URL"),
		DBUser:           v.GetString("DB_USER"),
		DBPass:           v.GetString("DB_PASS"),
		DBHost:           v.GetString("DB_HOST"),
		DBPort:           v.GetString("DB_PORT"),
		DBName:           v.GetString("DB_NAME"),
		DBSSLMode:        v.GetString("DB_SSLMODE"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		AnonKey:          v.GetString("ANON_KEY"),
		Debug:            v.GetBool("DEBUG"),
		Port:             v.GetString("PORT"),
		TLSDomains:       splitTrimmed(v.GetString("TLS_DOMAINS")),
		SeasonYear:       v.GetInt("SEASON_YEAR"),
		MinRiders:        v.GetInt("MIN_RIDERS"),
		MaxRiders:        v.GetInt("MAX_RIDERS"),
		RulesFile:        v.GetString("RULES_FILE"),
		PCSBaseURL:       strings.TrimRight(v.GetString("PCS_BASE_URL"), "/"),
		PCSCookie:        v.GetString("PCS_COOKIE"),
		PCSCookiesJSON:   v.GetString("PCS_COOKIES_JSON"),
		PCSBypass:        v.GetBool("PCS_BYPASS"),
		FetchConcurrency: v.GetInt("FETCH_CONCURRENCY"),
		FetchTimeout:     v.GetDuration("FETCH_TIMEOUT"),
		FetchRetries:     v.GetInt("FETCH_RETRIES"),
		ResultsPageSize:  v.GetInt("RESULTS_PAGE_SIZE"),
		BatchSize:        v.GetInt("BATCH_SIZE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// RequireDatabase reports an error when no database credentials are set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return errors.New("config: DATABASE_URL or DB_PASS must be set")
	}
	return nil
}

// RequireJWTSecret reports an error when JWT_SECRET is unset.
func (c *Config) RequireJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	return nil
}

func (c *Config) validate() error {
	if c.SeasonYear < 1900 {
		return fmt.Errorf("config: SEASON_YEAR %d out of range", c.SeasonYear)
	}
	if c.MinRiders < 1 || c.MaxRiders < c.MinRiders {
		return fmt.Errorf("config: roster bounds [%d,%d] invalid", c.MinRiders, c.MaxRiders)
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("config: FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.ResultsPageSize < 1 || c.BatchSize < 1 {
		return errors.New("config: RESULTS_PAGE_SIZE and BATCH_SIZE must be positive")
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
