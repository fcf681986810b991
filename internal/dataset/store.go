// Package dataset owns the published dataset and its regeneration cycle.
package dataset

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"measure-tracker/internal/logger"
	"measure-tracker/internal/metrics"
	"measure-tracker/internal/models"
)

// RawSource fetches every raw record set
type RawSource interface {
	FetchAll(ctx context.Context) (models.RawData, error)
}

// Builder turns raw record sets into an enriched dataset
type Builder interface {
	Run(ctx context.Context, raw models.RawData) (*models.Dataset, error)
}

// Store publishes the latest successfully built dataset. Readers get an
// immutable snapshot; a failed regeneration leaves the previous one in place.
type Store struct {
	source  RawSource
	builder Builder
	log     *logger.Logger

	current atomic.Pointer[models.Dataset]
	// regen serializes regenerations
	regen sync.Mutex
}

// NewStore creates an empty store
func NewStore(source RawSource, builder Builder, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		source:  source,
		builder: builder,
		log:     log.With("component", "dataset"),
	}
}

// Current returns the published dataset, or nil before the first successful
// regeneration
func (s *Store) Current() *models.Dataset {
	return s.current.Load()
}

// Publish replaces the published dataset
func (s *Store) Publish(ds *models.Dataset) {
	s.current.Store(ds)
	metrics.DatasetEntities.WithLabelValues("projects").Set(float64(len(ds.Projects)))
	metrics.DatasetEntities.WithLabelValues("allocations").Set(float64(len(ds.Allocations)))
	metrics.DatasetEntities.WithLabelValues("awards").Set(float64(len(ds.Awards)))
	metrics.DatasetEntities.WithLabelValues("payments").Set(float64(len(ds.Payments)))
	metrics.DatasetEntities.WithLabelValues("grantees").Set(float64(len(ds.Grantees)))
	metrics.DatasetEntities.WithLabelValues("categories").Set(float64(len(ds.Categories)))
}

// Regenerate fetches raw records, rebuilds the dataset and publishes it
func (s *Store) Regenerate(ctx context.Context) (*models.Dataset, error) {
	s.regen.Lock()
	defer s.regen.Unlock()

	start := time.Now()
	ds, err := s.build(ctx)
	metrics.RegenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RegenerationTotal.WithLabelValues("failure").Inc()
		s.log.Error("regeneration failed, keeping previous dataset",
			"error", err, "has_previous", s.Current() != nil)
		return nil, err
	}

	s.Publish(ds)
	metrics.RegenerationTotal.WithLabelValues("success").Inc()
	s.log.Info("dataset published",
		"projects", len(ds.Projects),
		"generated_at", ds.GeneratedAt,
		"elapsed", time.Since(start).String())
	return ds, nil
}

func (s *Store) build(ctx context.Context) (*models.Dataset, error) {
	raw, err := s.source.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}
	ds, err := s.builder.Run(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("building dataset: %w", err)
	}
	return ds, nil
}

// Run regenerates immediately and then every interval until ctx ends. A
// non-positive interval regenerates once.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	_, _ = s.Regenerate(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("regeneration loop stopped")
			return
		case <-ticker.C:
			_, _ = s.Regenerate(ctx)
		}
	}
}
