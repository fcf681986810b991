// Package recordstore fetches the raw record sets a regeneration cycle works from.
package recordstore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"measure-tracker/internal/models"
)

// Source returns every record of one table. Pagination and retries are the
// source's concern.
type Source interface {
	Fetch(ctx context.Context, table string) ([]models.Record, error)
}

// Store exposes one fetch per table on top of a Source
type Store struct {
	source Source
}

// New wraps source
func New(source Source) *Store {
	return &Store{source: source}
}

func (s *Store) fetch(ctx context.Context, table string) ([]models.Record, error) {
	records, err := s.source.Fetch(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}
	if records == nil {
		records = []models.Record{}
	}
	return records, nil
}

// FetchAllocations returns every allocation record
func (s *Store) FetchAllocations(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableAllocations)
}

// FetchAwards returns every award record
func (s *Store) FetchAwards(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableAwards)
}

// FetchCategories returns every category record
func (s *Store) FetchCategories(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableCategories)
}

// FetchDocuments returns every document record
func (s *Store) FetchDocuments(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableDocuments)
}

// FetchGrantees returns every grantee record
func (s *Store) FetchGrantees(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableGrantees)
}

// FetchPayments returns every payment record
func (s *Store) FetchPayments(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TablePayments)
}

// FetchProjects returns every project record
func (s *Store) FetchProjects(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableProjects)
}

// FetchRevenue returns every revenue record
func (s *Store) FetchRevenue(ctx context.Context) ([]models.Record, error) {
	return s.fetch(ctx, models.TableRevenue)
}

type tableFetch struct {
	dst   *[]models.Record
	fetch func(context.Context) ([]models.Record, error)
}

// FetchAll fetches the eight tables concurrently. The first failure cancels
// the rest and is returned.
func (s *Store) FetchAll(ctx context.Context) (models.RawData, error) {
	var raw models.RawData
	fetches := []tableFetch{
		{&raw.Allocations, s.FetchAllocations},
		{&raw.Awards, s.FetchAwards},
		{&raw.Categories, s.FetchCategories},
		{&raw.Documents, s.FetchDocuments},
		{&raw.Grantees, s.FetchGrantees},
		{&raw.Payments, s.FetchPayments},
		{&raw.Projects, s.FetchProjects},
		{&raw.Revenue, s.FetchRevenue},
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range fetches {
		g.Go(func() error {
			records, err := f.fetch(ctx)
			if err != nil {
				return err
			}
			*f.dst = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.RawData{}, err
	}
	return raw, nil
}
