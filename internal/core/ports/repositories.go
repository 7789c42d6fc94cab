package ports

import (
	"context"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// PlaceRepository runs spatial place queries on the Parkit backend.
type PlaceRepository interface {
	Nearby(ctx context.Context, q domain.NearbyQuery) ([]domain.PlaceSummary, error)
	AlongRoute(ctx context.Context, q domain.AlongRouteQuery) ([]domain.PlaceSummary, error)
}

// AvailabilityRepository fetches per-hour slot availability for a location.
type AvailabilityRepository interface {
	Slots(ctx context.Context, locationID, date string, vehicleType domain.VehicleCategory) (*domain.SlotBoard, error)
}

// BookingRepository creates bookings and lists the caller's vehicles.
type BookingRepository interface {
	Create(ctx context.Context, req domain.BookingRequest) (*domain.Booking, error)
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}

// HostRepository applies host-side listing and pricing changes.
type HostRepository interface {
	UpdatePricing(ctx context.Context, pricing domain.PricingInfo) error
	UpdateListing(ctx context.Context, kind, id string, update domain.ListingUpdate) error
}

// AttemptRepository persists the booking submission ledger.
type AttemptRepository interface {
	Insert(ctx context.Context, a *domain.BookingAttempt) error
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]domain.BookingAttempt, int, error)
}
