// Package pipeline turns raw record sets into the denormalized dataset.
//
// Run makes three ordered passes over a fresh copy of the input:
//
//  1. attribution: categories, grantees and derived links
//  2. geometry: GeoJSON downloads and bounding boxes, fanned out over a
//     bounded worker pool
//  3. aggregation: per-project payment, allocation and award totals
//
// The raw input is never modified.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"measure-tracker/internal/logger"
	"measure-tracker/internal/models"
)

// Fetcher downloads a GeoJSON document
type Fetcher interface {
	Fetch(ctx context.Context, url string) (json.RawMessage, error)
}

// Config holds pipeline settings
type Config struct {
	// GeometryWorkers bounds concurrent geometry downloads
	GeometryWorkers int
	// Policy picks the allocation that decides a project's category
	Policy AttributionPolicy
}

// DefaultConfig returns default pipeline settings
func DefaultConfig() Config {
	return Config{
		GeometryWorkers: 8,
		Policy:          LargestAllocation,
	}
}

// Pipeline builds enriched datasets
type Pipeline struct {
	fetcher Fetcher
	log     *logger.Logger
	config  Config
	now     func() time.Time
}

// New creates a pipeline. fetcher may be nil, in which case external geometry
// references are skipped.
func New(fetcher Fetcher, log *logger.Logger, config Config) *Pipeline {
	if config.GeometryWorkers <= 0 {
		config.GeometryWorkers = 1
	}
	if config.Policy == nil {
		config.Policy = LargestAllocation
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		fetcher: fetcher,
		log:     log.With("component", "pipeline"),
		config:  config,
		now:     time.Now,
	}
}

// Run produces an enriched dataset from raw. It only fails when ctx ends
// before the geometry pass settles; individual geometry failures are logged
// and leave that record without geometry.
func (p *Pipeline) Run(ctx context.Context, raw models.RawData) (*models.Dataset, error) {
	start := p.now()

	ds := p.attribute(raw)

	if err := p.resolveGeometry(ctx, ds); err != nil {
		return nil, fmt.Errorf("resolving geometry: %w", err)
	}

	aggregate(ds)

	ds.GeneratedAt = p.now()
	ds.Index()

	p.log.Info("dataset built",
		"projects", len(ds.Projects),
		"allocations", len(ds.Allocations),
		"awards", len(ds.Awards),
		"payments", len(ds.Payments),
		"elapsed", ds.GeneratedAt.Sub(start).String(),
	)

	return ds, nil
}
