package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/parkit/internal/pkg/geospatial"
)

func TestHaversine_KnownDistance(t *testing.T) {
	// Bilbao Abando to Donostia Amara, roughly 77 km apart.
	d := geospatial.Haversine(43.2614, -2.9275, 43.3140, -1.9748) / 1000
	if d < 75 || d > 82 {
		t.Errorf("expected ~77 km, got %.1f", d)
	}
	if geospatial.Haversine(10, 10, 10, 10) != 0 {
		t.Error("distance to self should be zero")
	}
}

func TestClampKm(t *testing.T) {
	if got := geospatial.ClampKm(0.1, 0.5, 50); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := geospatial.ClampKm(80, 0.5, 50); got != 50 {
		t.Errorf("expected 50, got %v", got)
	}
	if got := geospatial.ClampKm(3, 0.5, 50); got != 3 {
		t.Errorf("expected 3, got %v", got)
	}
}

func TestBoundingBox(t *testing.T) {
	minLat, minLon, maxLat, maxLon := geospatial.BoundingBox(43.26, -2.93, 5)
	if minLat >= 43.26 || maxLat <= 43.26 || minLon >= -2.93 || maxLon <= -2.93 {
		t.Fatalf("box does not contain its center: %v %v %v %v", minLat, minLon, maxLat, maxLon)
	}
	// Each edge sits roughly radiusKm from the center.
	if d := geospatial.Haversine(43.26, -2.93, maxLat, -2.93) / 1000; math.Abs(d-5) > 0.05 {
		t.Errorf("north edge %.3f km away, want 5", d)
	}
	if d := geospatial.Haversine(43.26, -2.93, 43.26, minLon) / 1000; math.Abs(d-5) > 0.05 {
		t.Errorf("west edge %.3f km away, want 5", d)
	}
}

func TestPolyline_GoogleReference(t *testing.T) {
	// Reference example from the polyline algorithm documentation.
	coords := [][2]float64{{38.5, -120.2}, {40.7, -120.95}, {43.252, -126.453}}
	enc := geospatial.EncodePolyline(coords)
	if enc != "_p~iF~ps|U_ulLnnqC_mqNvxq`@" {
		t.Errorf("unexpected encoding %q", enc)
	}

	dec, err := geospatial.DecodePolyline(enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dec) != len(coords) {
		t.Fatalf("expected %d points, got %d", len(coords), len(dec))
	}
	for i := range coords {
		if math.Abs(dec[i][0]-coords[i][0]) > 1e-5 || math.Abs(dec[i][1]-coords[i][1]) > 1e-5 {
			t.Errorf("point %d: expected %v, got %v", i, coords[i], dec[i])
		}
	}
}
