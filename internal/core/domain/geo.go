package domain

import (
	"fmt"

	"github.com/samirrijal/parkit/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate checks the point is inside WGS 84 bounds.
func (p GeoPoint) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %.6f out of range", ErrInvalidRegion, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng %.6f out of range", ErrInvalidRegion, p.Lng)
	}
	return nil
}

// GeoRegion is the rectangular extent of a map viewport.
// Antimeridian wraparound is not handled.
type GeoRegion struct {
	NorthEast GeoPoint `json:"northEast"`
	SouthWest GeoPoint `json:"southWest"`
}

// Validate enforces northEast >= southWest on both axes.
func (r GeoRegion) Validate() error {
	if err := r.NorthEast.Validate(); err != nil {
		return err
	}
	if err := r.SouthWest.Validate(); err != nil {
		return err
	}
	if r.NorthEast.Lat < r.SouthWest.Lat || r.NorthEast.Lng < r.SouthWest.Lng {
		return fmt.Errorf("%w: north-east corner must not be south or west of south-west corner", ErrInvalidRegion)
	}
	return nil
}

// Center returns the midpoint of the region.
func (r GeoRegion) Center() GeoPoint {
	return GeoPoint{
		Lat: (r.NorthEast.Lat + r.SouthWest.Lat) / 2,
		Lng: (r.NorthEast.Lng + r.SouthWest.Lng) / 2,
	}
}

// RadiusKm is half the great-circle diagonal of the region.
func (r GeoRegion) RadiusKm() float64 {
	meters := geospatial.Haversine(r.SouthWest.Lat, r.SouthWest.Lng, r.NorthEast.Lat, r.NorthEast.Lng)
	return meters / 2 / 1000
}

// regionAround returns the box extending radiusKm beyond the extremes of pts,
// clamped to WGS 84 bounds.
func regionAround(pts []GeoPoint, radiusKm float64) GeoRegion {
	r := GeoRegion{NorthEast: pts[0], SouthWest: pts[0]}
	for _, p := range pts[1:] {
		r.NorthEast.Lat = max(r.NorthEast.Lat, p.Lat)
		r.NorthEast.Lng = max(r.NorthEast.Lng, p.Lng)
		r.SouthWest.Lat = min(r.SouthWest.Lat, p.Lat)
		r.SouthWest.Lng = min(r.SouthWest.Lng, p.Lng)
	}
	_, _, maxLat, maxLng := geospatial.BoundingBox(r.NorthEast.Lat, r.NorthEast.Lng, radiusKm)
	minLat, minLng, _, _ := geospatial.BoundingBox(r.SouthWest.Lat, r.SouthWest.Lng, radiusKm)
	return GeoRegion{
		NorthEast: GeoPoint{Lat: min(maxLat, 90), Lng: min(maxLng, 180)},
		SouthWest: GeoPoint{Lat: max(minLat, -90), Lng: max(minLng, -180)},
	}
}
