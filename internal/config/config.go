// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds everything a run needs. Values come from the environment
// (with defaults), can be overridden by an optional JSON config file, and
// finally by CLI flags. The struct is constructed at run start and owned by
// the run; nothing reads configuration from globals.
type Config struct {
	// Files
	SeedsFile          string `json:"seeds_file,omitempty"`
	CSVPath            string `json:"csv_path,omitempty"`
	PartitionStatePath string `json:"partition_state_path,omitempty"`
	TaxonomyPath       string `json:"taxonomy_path,omitempty"`

	// Credentials and services
	APIKey      string `json:"api_key,omitempty"`
	Username    string `json:"username,omitempty"`
	Password    string `json:"password,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`

	// Policy
	StalenessDays int `json:"staleness_days,omitempty" validate:"gte=0"`
	MinReviews    int `json:"min_reviews,omitempty" validate:"gte=0"`
	DevLimit      int `json:"dev_limit,omitempty" validate:"gte=0"`

	// Extraction bounds
	MaxReviewsPerPlace int `json:"max_reviews_per_place,omitempty" validate:"gte=0"`
	MaxLoadMoreClicks  int `json:"max_load_more_clicks,omitempty" validate:"gte=0"`
	NavTimeoutSec      int `json:"nav_timeout_sec,omitempty" validate:"gt=0"`
	SelectorTimeoutSec int `json:"selector_timeout_sec,omitempty" validate:"gt=0"`

	// Enrichment
	Model               string `json:"model,omitempty"`
	EnrichMinIntervalMs int    `json:"enrich_min_interval_ms,omitempty" validate:"gte=0"`
	EnrichMaxRetries    int    `json:"enrich_max_retries,omitempty" validate:"gte=0"`

	// Run mode
	Dev          bool `json:"dev,omitempty"`
	Force        bool `json:"force,omitempty"`
	RequireLogin bool `json:"require_login,omitempty"`
	Verbose      bool `json:"verbose,omitempty"`
}

// FromEnv builds a Config from environment variables with defaults.
// Callers are expected to have loaded .env already (godotenv in main).
func FromEnv() *Config {
	return &Config{
		SeedsFile:          getEnv("SEEDS_FILE", "url_list.txt"),
		CSVPath:            getEnv("CSV_PATH", "backbone_locations.csv"),
		PartitionStatePath: getEnv("PARTITION_STATE_PATH", "partition_state.json"),
		TaxonomyPath:       getEnv("TAXONOMY_PATH", ""),

		APIKey:      getEnv("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		Username:    getEnv("P4N_USERNAME", ""),
		Password:    getEnv("P4N_PASSWORD", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		StalenessDays: getEnvInt("STALENESS_DAYS", 30),
		MinReviews:    getEnvInt("MIN_REVIEWS", 5),
		DevLimit:      getEnvInt("DEV_LIMIT", 1),

		MaxReviewsPerPlace: getEnvInt("MAX_REVIEWS_PER_PLACE", 20),
		MaxLoadMoreClicks:  getEnvInt("MAX_LOAD_MORE_CLICKS", 3),
		NavTimeoutSec:      getEnvInt("NAV_TIMEOUT_SEC", 30),
		SelectorTimeoutSec: getEnvInt("SELECTOR_TIMEOUT_SEC", 10),

		Model:               getEnv("ENRICH_MODEL", "gemini-2.5-flash"),
		EnrichMinIntervalMs: getEnvInt("ENRICH_MIN_INTERVAL_MS", 4000),
		EnrichMaxRetries:    getEnvInt("ENRICH_MAX_RETRIES", 3),
	}
}

// LoadFile reads a JSON config file and overlays its non-zero values on top
// of the receiver. CLI flags are applied afterwards and win over both.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overlay Config
	if err := json.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	c.merge(&overlay)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.SeedsFile != "" {
		c.SeedsFile = o.SeedsFile
	}
	if o.CSVPath != "" {
		c.CSVPath = o.CSVPath
	}
	if o.PartitionStatePath != "" {
		c.PartitionStatePath = o.PartitionStatePath
	}
	if o.TaxonomyPath != "" {
		c.TaxonomyPath = o.TaxonomyPath
	}
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.Username != "" {
		c.Username = o.Username
	}
	if o.Password != "" {
		c.Password = o.Password
	}
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	if o.StalenessDays != 0 {
		c.StalenessDays = o.StalenessDays
	}
	if o.MinReviews != 0 {
		c.MinReviews = o.MinReviews
	}
	if o.DevLimit != 0 {
		c.DevLimit = o.DevLimit
	}
	if o.MaxReviewsPerPlace != 0 {
		c.MaxReviewsPerPlace = o.MaxReviewsPerPlace
	}
	if o.MaxLoadMoreClicks != 0 {
		c.MaxLoadMoreClicks = o.MaxLoadMoreClicks
	}
	if o.NavTimeoutSec != 0 {
		c.NavTimeoutSec = o.NavTimeoutSec
	}
	if o.SelectorTimeoutSec != 0 {
		c.SelectorTimeoutSec = o.SelectorTimeoutSec
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.EnrichMinIntervalMs != 0 {
		c.EnrichMinIntervalMs = o.EnrichMinIntervalMs
	}
	if o.EnrichMaxRetries != 0 {
		c.EnrichMaxRetries = o.EnrichMaxRetries
	}
	// Bool fields cannot distinguish unset from false; CLI flags win for those.
}

// Validate checks tagged constraints plus cross-field rules.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.SeedsFile == "" {
		return fmt.Errorf("config error: seeds file is required")
	}
	if c.RequireLogin && (c.Username == "" || c.Password == "") {
		return fmt.Errorf("config error: --require-login set but P4N_USERNAME/P4N_PASSWORD are missing")
	}
	return nil
}

// Staleness returns the staleness threshold as a duration.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.StalenessDays) * 24 * time.Hour
}

// NavTimeout returns the bounded timeout for page navigation.
func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// SelectorTimeout returns the bounded timeout for selector readiness waits.
func (c *Config) SelectorTimeout() time.Duration {
	return time.Duration(c.SelectorTimeoutSec) * time.Second
}

// EnrichMinInterval returns the minimum delay enforced between AI calls.
func (c *Config) EnrichMinInterval() time.Duration {
	return time.Duration(c.EnrichMinIntervalMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
