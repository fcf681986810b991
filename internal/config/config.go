// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Record sources
const (
	SourceAirtable = "airtable"
	SourceSQLite   = "sqlite"
)

// Search backends
const (
	SearchAlgolia = "algolia"
	SearchSQLite  = "sqlite"
)

// Config is shared by the server, sync and tools commands
type Config struct {
	Port    int    `env:"PORT" envDefault:"8080"`
	DBPath  string `env:"DB_PATH" envDefault:"data/measures.db"`
	LogMode string `env:"LOG_MODE" envDefault:"dev"`

	RecordSource   string `env:"RECORD_SOURCE" envDefault:"sqlite"`
	AirtableAPIURL string `env:"AIRTABLE_API_URL" envDefault:"https://api.airtable.com/v0"`
	AirtableBaseID string `env:"AIRTABLE_BASE_ID"`
	AirtableAPIKey string `env:"AIRTABLE_API_KEY"`

	SearchBackend       string `env:"SEARCH_BACKEND" envDefault:"sqlite"`
	AlgoliaAppID        string `env:"ALGOLIA_APP_ID"`
	AlgoliaSearchAPIKey string `env:"ALGOLIA_SEARCH_API_KEY"`
	AlgoliaIndex        string `env:"ALGOLIA_INDEX" envDefault:"TAX_MEASURES_PROJECTS"`

	RegenerateInterval time.Duration `env:"REGENERATE_INTERVAL" envDefault:"10m"`
	GeometryWorkers    int           `env:"GEOMETRY_WORKERS" envDefault:"8"`
	GeometryTimeout    time.Duration `env:"GEOMETRY_TIMEOUT" envDefault:"30s"`

	CategoryCards string `env:"CATEGORY_CARDS"`
	MapboxToken   string `env:"MAPBOX_TOKEN"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the environment
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the selected backends have what they need
func (c Config) Validate() error {
	var errs []error
	switch c.RecordSource {
	case SourceSQLite:
	case SourceAirtable:
		if c.AirtableBaseID == "" || c.AirtableAPIKey == "" {
			errs = append(errs, errors.New("AIRTABLE_BASE_ID and AIRTABLE_API_KEY are required for the airtable record source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RECORD_SOURCE %q", c.RecordSource))
	}
	switch c.SearchBackend {
	case SearchSQLite:
	case SearchAlgolia:
		if c.AlgoliaAppID == "" || c.AlgoliaSearchAPIKey == "" {
			errs = append(errs, errors.New("ALGOLIA_APP_ID and ALGOLIA_SEARCH_API_KEY are required for the algolia search backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SEARCH_BACKEND %q", c.SearchBackend))
	}
	if c.GeometryWorkers < 1 {
		errs = append(errs, fmt.Errorf("GEOMETRY_WORKERS must be at least 1, got %d", c.GeometryWorkers))
	}
	if c.RegenerateInterval < 0 {
		errs = append(errs, errors.New("REGENERATE_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for Port
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
