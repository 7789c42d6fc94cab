package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/parkit/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// legacyRoutes are the paths mobile clients called before /v1 existed.
var legacyRoutes = []DeprecatedRoute{
	{
		Path:        "/map/nearby",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/places/nearby",
	},
	{
		Path:        "/map/availability/slots/:id",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/locations/:id/slots",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(TokenMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			// Viewport sessions are long-lived; one upgrade is one request.
			return c.Path() == "/ws"
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())
	app.Use(DeprecationMiddleware(legacyRoutes))

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	v1.Get("/places/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), requestTimeout))
	v1.Get("/places/along-route", timeout.NewWithContext(AlongRouteHandler(deps), requestTimeout))
	v1.Get("/locations/:id/slots", timeout.NewWithContext(SlotsHandler(deps), requestTimeout))
	v1.Post("/quotes", timeout.NewWithContext(QuoteHandler(deps), requestTimeout))

	authed := v1.Group("", RequireToken(deps.Auth))
	authed.Post("/bookings", timeout.NewWithContext(CreateBookingHandler(deps), requestTimeout))
	authed.Get("/me/vehicles", timeout.NewWithContext(ListVehiclesHandler(deps), requestTimeout))
	authed.Get("/me/booking-attempts", timeout.NewWithContext(ListAttemptsHandler(deps), requestTimeout))
	authed.Patch("/host/pricing", timeout.NewWithContext(UpdatePricingHandler(deps), requestTimeout))
	authed.Patch("/host/listings/:kind/:id", timeout.NewWithContext(UpdateListingHandler(deps), requestTimeout))

	// Legacy aliases
	app.Get("/map/nearby", timeout.NewWithContext(NearbyPlacesHandler(deps), requestTimeout))
	app.Get("/map/availability/slots/:id", timeout.NewWithContext(SlotsHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		// Browsers cannot set headers on an upgrade request.
		if c.Locals(localsToken) == nil {
			if tok := c.Query("token"); tok != "" {
				c.Locals(localsToken, tok)
			}
		}
		return c.Next()
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
