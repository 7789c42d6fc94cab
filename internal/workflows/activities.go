package workflows

import (
	"context"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/core/usecases"
)

// RefreshActivities holds the activity implementations for the availability
// refresh workflow.
type RefreshActivities struct {
	Direct *usecases.DirectRefresher
}

// InvalidateAvailability drops cached slot boards of the event's location.
func (a *RefreshActivities) InvalidateAvailability(ctx context.Context, ev domain.AvailabilityChanged) error {
	return a.Direct.Invalidate(ctx, ev)
}

// PublishAvailability announces the change on the message broker.
func (a *RefreshActivities) PublishAvailability(ctx context.Context, ev domain.AvailabilityChanged) error {
	return a.Direct.Publish(ctx, ev)
}
