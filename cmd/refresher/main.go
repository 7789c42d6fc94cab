package main

import (
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/parkit/internal/adapters/backend"
	natsadapter "github.com/samirrijal/parkit/internal/adapters/nats"
	"github.com/samirrijal/parkit/internal/adapters/valkey"
	"github.com/samirrijal/parkit/internal/core/usecases"
	"github.com/samirrijal/parkit/internal/pkg/config"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/workflows"
)

func main() {
	cfg, err := config.Load("parkit-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	loc, err := cfg.Availability.Location()
	if err != nil {
		log.Fatalf("availability timezone: %v", err)
	}

	// Activities need the same cache and broker as the API.
	cache, err := valkey.New(cfg.Valkey.Addr, "parkit:")
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	conn, err := natsadapter.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	publisher, err := natsadapter.NewPublisher(conn)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	avail := usecases.NewAvailabilityService(
		backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout), cache, cfg.Availability.CacheTTL, loc)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.AvailabilityRefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{
		Direct: usecases.NewDirectRefresher(avail, publisher),
	})

	slog.Info("refresher worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
