package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

// Metrics holds all Prometheus collectors for the engagement backend.
var Metrics = struct {
	VotesTotal            *prometheus.CounterVec
	EngagementEventsTotal *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
	RequestsInFlight      prometheus.Gauge
	SubscribersConnected  prometheus.GaugeFunc
	DBPoolActive          prometheus.GaugeFunc
	DBPoolIdle            prometheus.GaugeFunc
}{}

// InitMetrics registers all Prometheus metrics. Call once at startup.
func InitMetrics(pool *pgxpool.Pool, broadcaster *service.Broadcaster) {
	Metrics.VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_votes_total",
			Help: "Total votes submitted, by vote type.",
		},
		[]string{"vote_type"},
	)

	Metrics.EngagementEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "music_engagement_events_total",
			Help: "Total engagement events recorded, by kind.",
		},
		[]string{"kind"},
	)

	Metrics.RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "music_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	Metrics.RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "music_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	prometheus.MustRegister(
		Metrics.VotesTotal,
		Metrics.EngagementEventsTotal,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
	)

	if broadcaster != nil {
		Metrics.SubscribersConnected = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "music_activity_subscribers",
				Help: "Number of live activity stream subscribers.",
			},
			func() float64 {
				return float64(broadcaster.SubscriberCount())
			},
		)
		prometheus.MustRegister(Metrics.SubscribersConnected)
	}

	// DB pool gauges — read live stats from pgxpool
	if pool != nil {
		Metrics.DBPoolActive = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "music_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 {
				return float64(pool.Stat().AcquiredConns())
			},
		)

		Metrics.DBPoolIdle = prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "music_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 {
				return float64(pool.Stat().IdleConns())
			},
		)

		prometheus.MustRegister(Metrics.DBPoolActive)
		prometheus.MustRegister(Metrics.DBPoolIdle)
	}
}

// MetricsMiddleware records request duration and in-flight count for Prometheus.
func MetricsMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		// Don't instrument the /metrics endpoint itself, and skip the
		// long-lived stream: its duration is the connection lifetime,
		// not a request latency.
		if c.Path() == "/metrics" || strings.HasSuffix(c.Path(), "/activity/stream") {
			return c.Next()
		}

		// Copy path and method into owned strings BEFORE c.Next() — Fiber
		// returns slices backed by the fasthttp buffer which can be reused
		// or overwritten by handlers (especially fasthttpadaptor).
		path := string([]byte(c.Path()))
		method := string([]byte(c.Method()))
		endpoint := sanitizeEndpoint(path)

		Metrics.RequestsInFlight.Inc()
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())

		Metrics.RequestDuration.WithLabelValues(endpoint, method, status).Observe(duration)
		Metrics.RequestsInFlight.Dec()

		return err
	}
}

// sanitizeEndpoint normalizes paths to avoid cardinality explosion.
func sanitizeEndpoint(path string) string {
	if !strings.HasPrefix(path, "/api/media/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/api/media/")
	switch rest {
	case "trending", "popular", "hot":
		return path
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		return "/api/media/:id/" + rest[i+1:]
	}
	return "/api/media/:id"
}

// MetricsHandler serves the Prometheus /metrics endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	httpHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c fiber.Ctx) error {
		httpHandler(c.RequestCtx())
		return nil
	}
}
