// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and TUTORBOARD_* environment variables on top.
// - Validate reports every invalid key at once, wrapped in ErrInvalidConfig.
package config

import "time"

// Score sources.
const (
	SourceSheets   = "sheets"
	SourcePostgres = "postgres"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// DefaultSheetID is the school's score sheet.
const DefaultSheetID = "1BRb8p3Rq0VpFCLSwL4eS9tSgXBo9hSWzfW_J_7W36NQ"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// SheetID identifies the spreadsheet holding the scores.
	SheetID string `koanf:"sheet_id" validate:"required"`

	// TabCandidates are tried in order until one yields data rows.
	TabCandidates []string `koanf:"tab_candidates" validate:"min=1,dive,required"`

	// MinAssignments is the default qualification threshold.
	MinAssignments int `koanf:"min_assignments" validate:"min=1"`

	// TopN is the default view size; MaxTopN caps ?top_n.
	TopN    int `koanf:"top_n" validate:"min=1"`
	MaxTopN int `koanf:"max_top_n" validate:"gtefield=TopN"`

	// CacheTTLSeconds bounds how long a fetched sheet is reused. Zero disables caching.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds" validate:"min=0"`

	FetchTimeoutMS  int     `koanf:"fetch_timeout_ms" validate:"min=1"`
	FetchRetries    int     `koanf:"fetch_retries" validate:"min=0,max=5"`
	FetchRatePerSec float64 `koanf:"fetch_rate_per_sec" validate:"gt=0"`
	FetchBurst      int     `koanf:"fetch_burst" validate:"min=1"`

	// Source selects where scores are read from.
	Source         string `koanf:"source" validate:"oneof=sheets postgres"`
	PostgresURL    string `koanf:"postgres_url" validate:"required_if=Source postgres"`
	PostgresSchema string `koanf:"postgres_schema" validate:"required_if=Source postgres"`

	// CacheBackend selects the sheet cache.
	CacheBackend string `koanf:"cache_backend" validate:"oneof=memory redis"`
	RedisAddr    string `koanf:"redis_addr" validate:"required_if=CacheBackend redis"`
	RedisDB      int    `koanf:"redis_db" validate:"min=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		SheetID:         DefaultSheetID,
		TabCandidates:   DefaultTabCandidates(),
		MinAssignments:  3,
		TopN:            50,
		MaxTopN:         500,
		CacheTTLSeconds: 300,
		FetchTimeoutMS:  12_000,
		FetchRetries:    1,
		FetchRatePerSec: 2,
		FetchBurst:      4,
		Source:          SourceSheets,
		PostgresSchema:  "public",
		CacheBackend:    CacheMemory,
	}
}

// DefaultTabCandidates returns the tab names tried when none are configured.
func DefaultTabCandidates() []string {
	return []string{"Scores", "scores", "SCORES", "Sheet1"}
}

// CacheTTL returns the cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// FetchTimeout returns the per-request fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}
