package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/parkit/internal/core/domain"
)

// Activity names registered by the refresher worker.
const (
	ActivityInvalidate = "InvalidateAvailability"
	ActivityPublish    = "PublishAvailability"
)

// AvailabilityRefreshWorkflow drops the cached slot boards of a location and
// then tells live listeners about the change. A failed publish does not undo
// the invalidation.
func AvailabilityRefreshWorkflow(ctx workflow.Context, ev domain.AvailabilityChanged) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting availability refresh", "locationID", ev.LocationID, "reason", ev.Reason)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	})

	if err := workflow.ExecuteActivity(ctx, ActivityInvalidate, ev).Get(ctx, nil); err != nil {
		return err
	}

	if err := workflow.ExecuteActivity(ctx, ActivityPublish, ev).Get(ctx, nil); err != nil {
		logger.Warn("availability publish failed", "locationID", ev.LocationID, "error", err)
		return err
	}

	logger.Info("Availability refreshed", "locationID", ev.LocationID)
	return nil
}
