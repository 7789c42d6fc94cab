package ports

import (
	"context"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// PlaceResolver turns an external place identifier into coordinates.
type PlaceResolver interface {
	Resolve(ctx context.Context, placeID string) (domain.GeoPoint, error)
}

// RouteProvider computes a driving route between two points.
type RouteProvider interface {
	Route(ctx context.Context, from, to domain.GeoPoint) (*domain.Route, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAvailabilityChanged(ctx context.Context, ev domain.AvailabilityChanged) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAvailability(ctx context.Context, handler func(ctx context.Context, ev domain.AvailabilityChanged) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// AvailabilityRefresher propagates an inventory change to caches and
// listeners.
type AvailabilityRefresher interface {
	Refresh(ctx context.Context, ev domain.AvailabilityChanged) error
}
