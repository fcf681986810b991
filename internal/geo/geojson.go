package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrNoCoordinates is returned for documents without any geometry
var ErrNoCoordinates = errors.New("geojson has no coordinates")

// BoundsOf computes the bounding box of a GeoJSON FeatureCollection, Feature or
// bare geometry
func BoundsOf(data []byte) (BBox, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return BBox{}, fmt.Errorf("decoding geojson: %w", err)
	}

	var geoms []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return BBox{}, fmt.Errorf("decoding feature collection: %w", err)
		}
		for _, f := range fc.Features {
			if f != nil && f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return BBox{}, fmt.Errorf("decoding feature: %w", err)
		}
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	case "":
		return BBox{}, errors.New("geojson has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return BBox{}, fmt.Errorf("decoding geometry: %w", err)
		}
		if g.Geometry() != nil {
			geoms = append(geoms, g.Geometry())
		}
	}

	if len(geoms) == 0 {
		return BBox{}, ErrNoCoordinates
	}

	bound := geoms[0].Bound()
	for _, g := range geoms[1:] {
		bound = bound.Union(g.Bound())
	}
	return BBox{bound.Min.Lon(), bound.Min.Lat(), bound.Max.Lon(), bound.Max.Lat()}, nil
}

// PointFeature builds a single-point Feature tagged with the project id and its
// degenerate bbox
func PointFeature(projectID string, lng, lat float64) ([]byte, BBox, error) {
	pt := orb.Point{lng, lat}
	f := geojson.NewFeature(pt)
	f.Properties["projectId"] = projectID

	data, err := json.Marshal(f)
	if err != nil {
		return nil, BBox{}, fmt.Errorf("encoding point feature: %w", err)
	}
	return data, BBox{lng, lat, lng, lat}, nil
}
