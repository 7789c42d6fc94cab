package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// --- Mock PlaceRepository ---

type mockPlaceRepo struct {
	nearbyFn     func(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error)
	alongRouteFn func(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error)
}

func (m *mockPlaceRepo) Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error) {
	if m.nearbyFn != nil {
		return m.nearbyFn(ctx, q)
	}
	return nil, nil
}

func (m *mockPlaceRepo) AlongRoute(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error) {
	if m.alongRouteFn != nil {
		return m.alongRouteFn(ctx, q)
	}
	return nil, nil
}

// --- Mock PlaceResolver / RouteProvider ---

type mockResolver map[string]domain.GeoPoint

func (m mockResolver) Resolve(ctx context.Context, id string) (domain.GeoPoint, error) {
	p, ok := m[id]
	if !ok {
		return domain.GeoPoint{}, domain.ErrNotFound
	}
	return p, nil
}

type mockRouter struct {
	routeFn func(ctx context.Context, from, to domain.GeoPoint) (*domain.Route, error)
}

func (m *mockRouter) Route(ctx context.Context, from, to domain.GeoPoint) (*domain.Route, error) {
	if m.routeFn != nil {
		return m.routeFn(ctx, from, to)
	}
	return &domain.Route{Path: []domain.GeoPoint{from, to}}, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.deleted = append(m.deleted, key)
	return nil
}

// --- Mock AvailabilityRepository ---

type mockAvailabilityRepo struct {
	mu      sync.Mutex
	calls   int
	slotsFn func(ctx context.Context, locationID, date string, vt domain.VehicleCategory) (*domain.SlotBoard, error)
}

func (m *mockAvailabilityRepo) Slots(ctx context.Context, locationID, date string, vt domain.VehicleCategory) (*domain.SlotBoard, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.slotsFn != nil {
		return m.slotsFn(ctx, locationID, date, vt)
	}
	return testBoard(), nil
}

func (m *mockAvailabilityRepo) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	mu         sync.Mutex
	requests   []domain.BookingRequest
	listCalls  int
	createFn   func(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
	vehicles   []domain.Vehicle
	vehicleErr error
}

func (m *mockBookingRepo) Create(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return &domain.Booking{ID: "bk-1", VehicleID: req.VehicleID, LandOwnerID: req.LandOwnerID,
		StartTime: req.StartTime, EndTime: req.EndTime, TotalPrice: req.TotalPrice, Status: "confirmed"}, nil
}

func (m *mockBookingRepo) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	return m.vehicles, m.vehicleErr
}

func (m *mockBookingRepo) Requests() []domain.BookingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.BookingRequest(nil), m.requests...)
}

// --- Mock AttemptRepository ---

type mockAttemptRepo struct {
	mu       sync.Mutex
	inserted []domain.BookingAttempt
}

func (m *mockAttemptRepo) Insert(ctx context.Context, a *domain.BookingAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = "att-1"
	m.inserted = append(m.inserted, *a)
	return nil
}

func (m *mockAttemptRepo) ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.BookingAttempt, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BookingAttempt
	for _, a := range m.inserted {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

// --- Mock AvailabilityRefresher ---

type mockRefresher struct {
	mu     sync.Mutex
	events []domain.AvailabilityChanged
	err    error
}

func (m *mockRefresher) Refresh(ctx context.Context, ev domain.AvailabilityChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockRefresher) Events() []domain.AvailabilityChanged {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AvailabilityChanged(nil), m.events...)
}

// --- Fixtures ---

const testDate = "2026-03-10"

var testPricing = domain.PricingInfo{HourlyRate: 2.5, CoveredHourlyRate: 1, ChargingHourlyRate: 1.5}

// testBoard has basic spots every hour, covered spots from 8 to 19 and no
// charging spots at all.
func testBoard() *domain.SlotBoard {
	b := &domain.SlotBoard{Pricing: testPricing}
	for h := 0; h < domain.SlotsPerDay; h++ {
		s := domain.TimeSlot{Hour: h, BasicAvailable: 3, TotalSpots: 5}
		if h >= 8 && h < 20 {
			s.CoveredAvailable = 2
		}
		b.Slots = append(b.Slots, s)
	}
	return b
}

// dayBefore is a clock at which no slot of testDate is past.
func dayBefore() time.Time {
	return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
}
