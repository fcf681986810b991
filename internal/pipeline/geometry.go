package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"measure-tracker/internal/geo"
	"measure-tracker/internal/metrics"
	"measure-tracker/internal/models"
)

var errOutsideBBox = errors.New("geojson outside of bbox")

// resolveGeometry downloads every referenced GeoJSON document with at most
// GeometryWorkers in flight, then synthesizes points for projects that carry
// coordinates. Each goroutine writes only its own record.
func (p *Pipeline) resolveGeometry(ctx context.Context, ds *models.Dataset) error {
	var g errgroup.Group
	g.SetLimit(p.config.GeometryWorkers)

	if p.fetcher != nil {
		for i := range ds.Projects {
			pr := &ds.Projects[i]
			if pr.GeoJSONURL == "" {
				continue
			}
			g.Go(func() error {
				doc, box, err := p.fetchGeometry(ctx, pr.GeoJSONURL)
				if err != nil {
					metrics.GeometryFailures.WithLabelValues("project").Inc()
					p.log.Warn("invalid geometry for project",
						"project", pr.Name, "id", pr.ID, "url", pr.GeoJSONURL, "error", err)
					return nil
				}
				pr.Geometry = doc
				pr.BBox = &box
				pr.HasProjectGeometry = true
				return nil
			})
		}

		for i := range ds.Grantees {
			gr := &ds.Grantees[i]
			if gr.GeoJSONURL == "" {
				continue
			}
			g.Go(func() error {
				doc, box, err := p.fetchGeometry(ctx, gr.GeoJSONURL)
				if err != nil {
					metrics.GeometryFailures.WithLabelValues("grantee").Inc()
					p.log.Warn("invalid geometry for grantee",
						"grantee", gr.Name, "id", gr.ID, "url", gr.GeoJSONURL, "error", err)
					return nil
				}
				gr.Geometry = doc
				gr.BBox = &box
				return nil
			})
		}
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	for i := range ds.Projects {
		pr := &ds.Projects[i]
		if pr.Latitude == nil || pr.Longitude == nil {
			continue
		}
		doc, box, err := geo.PointFeature(pr.ID, *pr.Longitude, *pr.Latitude)
		if err != nil {
			p.log.Warn("invalid coordinates for project", "project", pr.Name, "id", pr.ID, "error", err)
			continue
		}
		pr.Geometry = doc
		pr.BBox = &box
		pr.HasProjectGeometry = true
	}

	return nil
}

func (p *Pipeline) fetchGeometry(ctx context.Context, url string) (json.RawMessage, geo.BBox, error) {
	doc, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, geo.BBox{}, err
	}
	box, err := geo.BoundsOf(doc)
	if err != nil {
		return nil, geo.BBox{}, fmt.Errorf("computing bbox: %w", err)
	}
	if !box.IsValid() {
		return nil, geo.BBox{}, errOutsideBBox
	}
	return doc, box, nil
}
