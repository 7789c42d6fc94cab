package domain

import (
	"fmt"

	"github.com/samirrijal/parkit/internal/pkg/geospatial"
)

// NearbyQuery selects places within a radius of a point.
type NearbyQuery struct {
	Center   GeoPoint `json:"center"`
	RadiusKm float64  `json:"radiusKm"`
	Limit    int      `json:"limit"`
}

func (q NearbyQuery) Validate() error {
	if err := q.Center.Validate(); err != nil {
		return err
	}
	if q.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive", ErrInvalidRegion)
	}
	return nil
}

// Bounds is the box enclosing the search circle.
func (q NearbyQuery) Bounds() GeoRegion {
	return regionAround([]GeoPoint{q.Center}, q.RadiusKm)
}

// AlongRouteQuery selects places within a buffer around an encoded polyline.
type AlongRouteQuery struct {
	EncodedPolyline string  `json:"encodedPolyline"`
	BufferKm        float64 `json:"bufferKm"`
	Limit           int     `json:"limit"`
}

func (q AlongRouteQuery) Validate() error {
	if q.EncodedPolyline == "" {
		return fmt.Errorf("%w: empty route", ErrInvalidRegion)
	}
	if q.BufferKm <= 0 {
		return fmt.Errorf("%w: buffer must be positive", ErrInvalidRegion)
	}
	return nil
}

// Bounds is the box enclosing the route and its buffer.
func (q AlongRouteQuery) Bounds() (GeoRegion, error) {
	coords, err := geospatial.DecodePolyline(q.EncodedPolyline)
	if err != nil {
		return GeoRegion{}, fmt.Errorf("%w: %v", ErrInvalidRegion, err)
	}
	if len(coords) == 0 {
		return GeoRegion{}, fmt.Errorf("%w: empty route", ErrInvalidRegion)
	}
	pts := make([]GeoPoint, len(coords))
	for i, c := range coords {
		pts[i] = GeoPoint{Lat: c[0], Lng: c[1]}
	}
	return regionAround(pts, q.BufferKm), nil
}

// Route is a computed path between two points.
type Route struct {
	Encoded         string     `json:"encodedPolyline"`
	Path            []GeoPoint `json:"path,omitempty"`
	DistanceMeters  float64    `json:"distanceMeters"`
	DurationSeconds float64    `json:"durationSeconds"`
}
