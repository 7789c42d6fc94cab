package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/parkit/internal/adapters/backend"
	"github.com/samirrijal/parkit/internal/adapters/http"
	natsadapter "github.com/samirrijal/parkit/internal/adapters/nats"
	"github.com/samirrijal/parkit/internal/adapters/postgres"
	"github.com/samirrijal/parkit/internal/adapters/routing"
	"github.com/samirrijal/parkit/internal/adapters/valkey"
	"github.com/samirrijal/parkit/internal/core/ports"
	"github.com/samirrijal/parkit/internal/core/usecases"
	"github.com/samirrijal/parkit/internal/pkg/auth"
	"github.com/samirrijal/parkit/internal/pkg/config"
	"github.com/samirrijal/parkit/internal/pkg/logging"
	"github.com/samirrijal/parkit/internal/pkg/metrics"
	"github.com/samirrijal/parkit/internal/pkg/telemetry"
	"github.com/samirrijal/parkit/internal/workflows"
)

func main() {
	cfg, err := config.Load("parkit-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	loc, err := cfg.Availability.Location()
	if err != nil {
		log.Fatalf("availability timezone: %v", err)
	}

	// Cache
	cache, err := valkey.New(cfg.Valkey.Addr, "parkit:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
	}
	var cacheSvc ports.CacheService
	if cache != nil {
		cacheSvc = cache
	}

	// Booking attempt ledger (optional)
	db, err := postgres.New(ctx, cfg.Database.DSN(),
		postgres.WithMaxConns(cfg.Database.MaxConns),
		postgres.WithConnMaxLifetime(cfg.Database.ConnMaxLifetime),
	)
	if err != nil {
		slog.Warn("database unavailable, booking attempts will not be recorded", "error", err)
	} else {
		defer db.Close()
	}
	var attempts ports.AttemptRepository
	if db != nil {
		attempts = postgres.NewAttemptRepo(db)
	}

	// NATS
	var (
		natsConn   = connectNATS(cfg.NATS.URL)
		publisher  ports.EventPublisher
		subscriber *natsadapter.Subscriber
	)
	if natsConn != nil {
		defer natsConn.Close()
		if p, err := natsadapter.NewPublisher(natsConn); err != nil {
			slog.Warn("nats publisher unavailable", "error", err)
		} else {
			publisher = p
		}
		if s, err := natsadapter.NewSubscriber(natsConn); err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			subscriber = s
			defer s.Close()
		}
	}

	// Outbound clients
	api := backend.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
	osrm := routing.NewOSRM(cfg.Routing.OSRMURL, cfg.Routing.UserAgent, cfg.Routing.Timeout)
	nominatim := routing.NewNominatim(cfg.Routing.NominatimURL, cfg.Routing.UserAgent, cfg.Routing.Timeout)

	// Use cases
	mapSvc := usecases.NewMapService(api, nominatim, osrm, cacheSvc, usecases.MapOptions{
		NearbyLimit:    cfg.Map.NearbyLimit,
		MinRadiusKm:    cfg.Map.MinRadiusKm,
		MaxRadiusKm:    cfg.Map.MaxRadiusKm,
		SearchRadiusKm: cfg.Map.SearchRadiusKm,
		RouteBufferKm:  cfg.Map.RouteBufferKm,
		RouteLimit:     cfg.Map.RouteLimit,
		NearbyCacheTTL: cfg.Map.NearbyCacheTTL,
	})
	availSvc := usecases.NewAvailabilityService(api, cacheSvc, cfg.Availability.CacheTTL, loc)

	var refresher ports.AvailabilityRefresher = usecases.NewDirectRefresher(availSvc, publisher)
	if cfg.Temporal.Enabled {
		tc, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			slog.Warn("temporal unavailable, refreshing availability inline", "error", err)
		} else {
			defer tc.Close()
			refresher = workflows.NewRefresher(tc, cfg.Temporal.TaskQueue)
		}
	}

	hub := http.NewAvailabilityHub()
	deps := &http.Dependencies{
		Maps:         mapSvc,
		Availability: availSvc,
		Bookings:     usecases.NewBookingService(availSvc, api, attempts, refresher),
		Hosts:        usecases.NewHostService(api, refresher),
		Hub:          hub,
		Auth:         auth.NewVerifier([]byte(cfg.Auth.JWTSecret)),
		Session: http.SessionConfig{
			Debounce:      cfg.Map.Debounce,
			MarkerStagger: cfg.Map.MarkerStagger,
		},
		Backend: api,
		NATS:    natsConn,
		DB:      db,
		Cache:   cache,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Parkit API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, http://localhost:8081",
		AllowMethods:     "GET,POST,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	g, gctx := errgroup.WithContext(ctx)

	if subscriber != nil {
		g.Go(func() error {
			if err := hub.Start(gctx, subscriber); err != nil {
				slog.Warn("availability feed unavailable", "error", err)
			}
			return nil
		})
	}

	if db != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					metrics.UpdateDBPoolMetrics(db.Stat())
				}
			}
		})
	}

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, draining connections...")

		// Give in-flight requests up to 10s to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			slog.Error("forced shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectNATS(url string) *nats.Conn {
	conn, err := natsadapter.Connect(url)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
		return nil
	}
	return conn
}
