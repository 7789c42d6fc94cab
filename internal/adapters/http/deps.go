package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parkit/internal/adapters/postgres"
	"github.com/samirrijal/parkit/internal/adapters/valkey"
	"github.com/samirrijal/parkit/internal/core/usecases"
	"github.com/samirrijal/parkit/internal/pkg/auth"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps         *usecases.MapService
	Availability *usecases.AvailabilityService
	Bookings     *usecases.BookingService
	Hosts        *usecases.HostService
	Hub          *AvailabilityHub
	Auth         *auth.Verifier
	Backend      Pinger
	Session      SessionConfig
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}

// SessionConfig tunes viewport WebSocket sessions.
type SessionConfig struct {
	Debounce      time.Duration
	MarkerStagger time.Duration
}
