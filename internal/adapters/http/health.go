package http

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const readyTimeout = 3 * time.Second

// Pinger is a dependency the readiness check can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readinessCheck pings one dependency. A check whose dependency is absent
// reports "not configured" and fails readiness only when required.
type readinessCheck struct {
	name     string
	required bool
	ping     func(ctx context.Context) error // nil when not configured
}

func readinessChecks(deps *Dependencies) []readinessCheck {
	checks := []readinessCheck{
		{name: "backend", required: true},
		{name: "cache", required: true},
		{name: "nats"},
		{name: "database"},
	}
	if deps.Backend != nil {
		checks[0].ping = deps.Backend.Ping
	}
	if deps.Cache != nil {
		checks[1].ping = deps.Cache.Ping
	}
	if deps.NATS != nil {
		checks[2].ping = func(context.Context) error {
			if !deps.NATS.IsConnected() {
				return errDisconnected
			}
			return nil
		}
	}
	if deps.DB != nil {
		checks[3].ping = deps.DB.Ping
	}
	return checks
}

type readinessError string

func (e readinessError) Error() string { return string(e) }

const errDisconnected = readinessError("disconnected")

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	version := buildVersion()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "parkit-gateway",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": version,
		})
	}
}

// ReadyHandler pings the backend and every optional dependency in parallel.
// The gateway cannot serve places or slots without the backend and the cache.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			checks = make(map[string]string)
			ready  = true
		)
		record := func(chk readinessCheck, result string, ok bool) {
			mu.Lock()
			defer mu.Unlock()
			checks[chk.name] = result
			if !ok && (chk.required || chk.ping != nil) {
				ready = false
			}
		}

		var g errgroup.Group
		for _, chk := range readinessChecks(deps) {
			if chk.ping == nil {
				record(chk, "not configured", false)
				continue
			}
			chk := chk
			g.Go(func() error {
				if err := chk.ping(ctx); err != nil {
					record(chk, "error: "+err.Error(), false)
				} else {
					record(chk, "ok", true)
				}
				return nil
			})
		}
		_ = g.Wait()

		status, code := "ready", fiber.StatusOK
		if !ready {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
