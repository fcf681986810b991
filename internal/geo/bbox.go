package geo

import "math"

// BBox is a bounding box: [minLng, minLat, maxLng, maxLat]
type BBox [4]float64

// EmptyBBox is the impossible box Merge starts from
var EmptyBBox = BBox{180, 90, -180, -90}

// IsValid reports whether every longitude is within [-180,180] and every
// latitude within [-90,90]
func (b BBox) IsValid() bool {
	if b[0] > 180 || b[0] < -180 {
		return false
	}
	if b[1] > 90 || b[1] < -90 {
		return false
	}
	if b[2] > 180 || b[2] < -180 {
		return false
	}
	if b[3] > 90 || b[3] < -90 {
		return false
	}
	return true
}

// IsValidBBox is IsValid for a plain slice; anything but four values is invalid
func IsValidBBox(box []float64) bool {
	if len(box) != 4 {
		return false
	}
	return BBox{box[0], box[1], box[2], box[3]}.IsValid()
}

// Merge returns the box enclosing all boxes. No boxes yields EmptyBBox.
func Merge(boxes []BBox) BBox {
	merged := EmptyBBox
	for _, b := range boxes {
		merged[0] = math.Min(merged[0], b[0])
		merged[1] = math.Min(merged[1], b[1])
		merged[2] = math.Max(merged[2], b[2])
		merged[3] = math.Max(merged[3], b[3])
	}
	return merged
}

// Viewport is a map camera position
type Viewport struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
	Bearing   float64 `json:"bearing"`
	Pitch     float64 `json:"pitch"`
}

// zoomBreakpoints maps the larger bbox span in degrees to a zoom level
var zoomBreakpoints = []struct {
	span float64
	zoom int
}{
	{0.8, 7},
	{0.35, 8},
	{0.3, 9},
	{0.25, 10},
	{0.07, 11},
	{0.01, 12},
}

// ViewportFor centers on the bbox and picks a zoom from its larger span
func ViewportFor(b BBox) Viewport {
	minLng, minLat, maxLng, maxLat := b[0], b[1], b[2], b[3]
	delta := math.Max(maxLng-minLng, maxLat-minLat)

	zoom := 13
	for _, bp := range zoomBreakpoints {
		if delta > bp.span {
			zoom = bp.zoom
			break
		}
	}

	return Viewport{
		Latitude:  (maxLat + minLat) / 2,
		Longitude: (maxLng + minLng) / 2,
		Zoom:      zoom,
	}
}
