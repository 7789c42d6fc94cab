package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

func TestMapService_QueryForRegion_ClampsRadius(t *testing.T) {
	maps := usecases.NewMapService(&mockPlaceRepo{}, nil, nil, nil, usecases.DefaultMapOptions())

	tiny := domain.GeoRegion{
		NorthEast: domain.GeoPoint{Lat: 43.2601, Lng: -2.9299},
		SouthWest: domain.GeoPoint{Lat: 43.2600, Lng: -2.9300},
	}
	if q := maps.QueryForRegion(tiny); q.RadiusKm != 0.5 {
		t.Errorf("tiny viewport radius = %v, want 0.5", q.RadiusKm)
	}

	huge := domain.GeoRegion{
		NorthEast: domain.GeoPoint{Lat: 45, Lng: 3},
		SouthWest: domain.GeoPoint{Lat: 36, Lng: -9},
	}
	q := maps.QueryForRegion(huge)
	if q.RadiusKm != 50 || q.Limit != 100 {
		t.Errorf("huge viewport query = %+v", q)
	}
}

func TestMapService_Nearby_Cached(t *testing.T) {
	calls := 0
	repo := &mockPlaceRepo{
		nearbyFn: func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
			calls++
			if q.Limit != 100 {
				t.Errorf("limit not clamped: %d", q.Limit)
			}
			return places("a", "b"), nil
		},
	}
	maps := usecases.NewMapService(repo, nil, nil, newMockCache(), usecases.DefaultMapOptions())
	q := domain.NearbyQuery{Center: domain.GeoPoint{Lat: 43.26, Lng: -2.93}, RadiusKm: 2, Limit: 5000}

	for i := 0; i < 2; i++ {
		got, err := maps.Nearby(context.Background(), q)
		if err != nil || len(got) != 2 {
			t.Fatalf("nearby: %v %v", got, err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 backend call, got %d", calls)
	}
}

func TestMapService_RouteQuery(t *testing.T) {
	resolver := mockResolver{
		"bilbao":   {Lat: 43.263, Lng: -2.935},
		"donostia": {Lat: 43.318, Lng: -1.981},
	}
	router := &mockRouter{
		routeFn: func(ctx context.Context, from, to domain.GeoPoint) (*domain.Route, error) {
			if from.Lat != 43.263 || to.Lat != 43.318 {
				t.Errorf("route endpoints swapped: %+v -> %+v", from, to)
			}
			return &domain.Route{Encoded: "abc"}, nil
		},
	}
	maps := usecases.NewMapService(&mockPlaceRepo{}, resolver, router, nil, usecases.DefaultMapOptions())

	q, err := maps.RouteQuery(context.Background(), "bilbao", "donostia")
	if err != nil {
		t.Fatal(err)
	}
	if q.EncodedPolyline != "abc" || q.BufferKm != 2 || q.Limit != 50 {
		t.Errorf("unexpected query %+v", q)
	}

	if _, err := maps.RouteQuery(context.Background(), "bilbao", "nowhere"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkerSet_Reconcile(t *testing.T) {
	m := usecases.NewMarkerSet(0)
	first := m.Reconcile(places("a", "b"))
	if usecases.CountNew(first) != 2 {
		t.Fatalf("expected 2 new")
	}
	if !m.Seen("a") || m.Seen("z") {
		t.Error("seen set wrong")
	}
	if n := usecases.CountNew(m.Reconcile(places("a"))); n != 0 {
		t.Errorf("subset produced %d new markers", n)
	}
	// ids stay seen after leaving the viewport
	if n := usecases.CountNew(m.Reconcile(places("b", "c"))); n != 1 {
		t.Errorf("expected 1 new marker, got %d", n)
	}
}
