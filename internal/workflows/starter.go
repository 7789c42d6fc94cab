package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/parkit/internal/core/domain"
	"github.com/samirrijal/parkit/internal/pkg/logging"
)

// Starter is the subset of client.Client the Refresher needs.
type Starter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Refresher implements ports.AvailabilityRefresher by starting an
// AvailabilityRefreshWorkflow. It returns once the workflow is accepted.
type Refresher struct {
	client    Starter
	taskQueue string
	now       func() time.Time
}

// NewRefresher creates a Refresher that starts workflows on taskQueue.
func NewRefresher(c Starter, taskQueue string) *Refresher {
	return &Refresher{client: c, taskQueue: taskQueue, now: time.Now}
}

// Refresh implements ports.AvailabilityRefresher.
func (r *Refresher) Refresh(ctx context.Context, ev domain.AvailabilityChanged) error {
	if ev.LocationID == "" {
		return fmt.Errorf("refresh: location id is required")
	}
	if ev.At.IsZero() {
		ev.At = r.now()
	}

	opts := client.StartWorkflowOptions{
		ID:        fmt.Sprintf("availability-refresh-%s-%d", ev.LocationID, ev.At.UnixNano()),
		TaskQueue: r.taskQueue,
	}
	run, err := r.client.ExecuteWorkflow(ctx, opts, AvailabilityRefreshWorkflow, ev)
	if err != nil {
		return fmt.Errorf("start refresh workflow: %w", err)
	}
	logging.FromContext(ctx).Debug("availability refresh started",
		"location_id", ev.LocationID, "workflow_id", run.GetID(), "run_id", run.GetRunID())
	return nil
}
