package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Query outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parkit",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	// Map synchronisation
	MapQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "map",
		Name:      "queries_total",
		Help:      "Map place queries by strategy and outcome",
	}, []string{"kind", "outcome"})

	MapQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "parkit",
		Subsystem: "map",
		Name:      "query_duration_seconds",
		Help:      "Duration of map place queries",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"kind"})

	DebouncedBounds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "map",
		Name:      "bounds_debounced_total",
		Help:      "Viewport updates superseded before their debounce fired",
	})

	NewMarkers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "map",
		Name:      "new_markers_total",
		Help:      "Markers flagged for entrance animation",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parkit",
		Subsystem: "ws",
		Name:      "active_sessions",
		Help:      "Current number of viewport WebSocket sessions",
	})

	DroppedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "ws",
		Name:      "dropped_messages_total",
		Help:      "Outbound messages dropped because a consumer fell behind",
	}, []string{"stage"})

	// Booking
	BookingSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "booking",
		Name:      "submissions_total",
		Help:      "Booking submissions by outcome",
	}, []string{"outcome"})

	AvailabilityRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "booking",
		Name:      "availability_refreshes_total",
		Help:      "Availability refreshes triggered after inventory changes",
	}, []string{"reason"})

	// Backend client
	BackendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Requests sent to the Parkit backend",
	}, []string{"operation", "status"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "parkit",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parkit",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parkit",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "parkit",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// ObserveMapQuery records one finished map query.
func ObserveMapQuery(kind, outcome string, elapsed time.Duration) {
	MapQueries.WithLabelValues(kind, outcome).Inc()
	if outcome != OutcomeCancelled {
		MapQueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
