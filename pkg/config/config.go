// CLAUDE:SUMMARY YAML configuration for the canon CLI and server: defaults, env override, struct validation.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/canon/pkg/source"
)

// TokenEnv overrides api.token when set.
const TokenEnv = "CANON_API_TOKEN"

var (
	ErrInvalid   = errors.New("invalid configuration")
	ErrDateRange = errors.New("api.date_from is after api.date_to")
)

// Config is the on-disk configuration.
type Config struct {
	Addr          string        `yaml:"addr" validate:"required"`
	LogLevel      string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	Workers       int           `yaml:"workers" validate:"gte=1,lte=256"`
	CheckInterval time.Duration `yaml:"check_interval" validate:"gte=0"`
	API           APIConfig     `yaml:"api"`
	Store         StoreConfig   `yaml:"store"`
}

// APIConfig points at the case-management API.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"omitempty,url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout" validate:"gt=0"`
	RatePerSecond float64       `yaml:"rate_per_second" validate:"gt=0"`
	DateFrom      string        `yaml:"date_from" validate:"datetime=2006-01-02"`
	DateTo        string        `yaml:"date_to" validate:"datetime=2006-01-02"`
}

// StoreConfig locates the sqlite endpoint registry and fetch cache.
type StoreConfig struct {
	Path     string        `yaml:"path" validate:"required"`
	CacheTTL time.Duration `yaml:"cache_ttl" validate:"gte=0"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Addr:          ":8421",
		LogLevel:      "info",
		Workers:       8,
		CheckInterval: time.Hour,
		API: APIConfig{
			Timeout:       30 * time.Second,
			RatePerSecond: 1,
			DateFrom:      "2010-01-01",
			DateTo:        "2030-12-31",
		},
		Store: StoreConfig{
			Path:     "canon.db",
			CacheTTL: time.Hour,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads path over the defaults. A missing file is not an error.
func Load(path string, logger *slog.Logger) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no config file, using defaults", "path", path)
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if tok := os.Getenv(TokenEnv); tok != "" {
		cfg.API.Token = tok
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and the date range.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	// Dates are ISO formatted, so lexical order is chronological.
	if c.API.DateFrom > c.API.DateTo {
		return fmt.Errorf("%w: %s > %s", ErrDateRange, c.API.DateFrom, c.API.DateTo)
	}
	return nil
}

// Level maps log_level to a slog level.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ClientConfig builds the API client settings.
func (c Config) ClientConfig(store *source.Store, logger *slog.Logger) source.ClientConfig {
	return source.ClientConfig{
		BaseURL:   c.API.BaseURL,
		Token:     c.API.Token,
		Timeout:   c.API.Timeout,
		RateLimit: rate.Limit(c.API.RatePerSecond),
		DateFrom:  c.API.DateFrom,
		DateTo:    c.API.DateTo,
		Store:     store,
		CacheTTL:  c.Store.CacheTTL,
		Logger:    logger,
	}
}
