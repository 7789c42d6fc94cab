package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

// DirectRefresher invalidates cached boards and notifies live listeners in
// the calling goroutine.
type DirectRefresher struct {
	availability *AvailabilityService
	publisher    ports.EventPublisher
}

// NewDirectRefresher creates a refresher. publisher may be nil.
func NewDirectRefresher(availability *AvailabilityService, publisher ports.EventPublisher) *DirectRefresher {
	return &DirectRefresher{availability: availability, publisher: publisher}
}

// Refresh implements ports.AvailabilityRefresher.
func (r *DirectRefresher) Refresh(ctx context.Context, ev domain.AvailabilityChanged) error {
	if ev.LocationID == "" {
		return fmt.Errorf("refresh: location id is required")
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	if err := r.Invalidate(ctx, ev); err != nil {
		return err
	}
	return r.Publish(ctx, ev)
}

// Invalidate is the cache half of Refresh.
func (r *DirectRefresher) Invalidate(ctx context.Context, ev domain.AvailabilityChanged) error {
	if err := r.availability.Invalidate(ctx, ev.LocationID, ev.Date); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	metrics.AvailabilityRefreshes.WithLabelValues(ev.Reason).Inc()
	return nil
}

// Publish is the notification half of Refresh.
func (r *DirectRefresher) Publish(ctx context.Context, ev domain.AvailabilityChanged) error {
	if r.publisher == nil {
		return nil
	}
	if err := r.publisher.PublishAvailabilityChanged(ctx, ev); err != nil {
		return fmt.Errorf("refresh: publish: %w", err)
	}
	return nil
}
