package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/NobleVision/MUSIC-sub000/internal/handler"
	"github.com/NobleVision/MUSIC-sub000/internal/identity"
	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/ratelimit"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Vote     *handler.VoteHandler
	Engage   *handler.EngageHandler
	Ranking  *handler.RankingHandler
	Activity *handler.ActivityHandler
	Health   *handler.HealthHandler
}

// Setup configures the middleware stack and all API routes on the given
// Fiber app. Every ledger-writing route is gated behind the sliding-window
// limiter for its action kind, uniformly before the write.
func Setup(app *fiber.App, h *Handlers, limiter *ratelimit.Limiter, resolver *identity.Resolver, corsOrigins string) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(corsOrigins))
	app.Use(handler.MetricsMiddleware())

	// Probes and metrics (no auth, no rate limiting)
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	api := app.Group("/api")

	// Ranking views (read-only; limit clamped server-side)
	api.Get("/media/trending", h.Ranking.Trending)
	api.Get("/media/popular", h.Ranking.Popular)
	api.Get("/media/hot", h.Ranking.Hot)

	// Vote routes
	api.Post("/media/:id/vote", h.Vote.Submit,
		middleware.NewRateLimit(limiter, resolver, "vote"))
	api.Delete("/media/:id/vote", h.Vote.Delete,
		middleware.NewRateLimit(limiter, resolver, "vote"))
	api.Get("/media/:id/votes", h.Vote.Counts)

	// Engagement logging routes
	api.Post("/media/:id/play", h.Engage.Play,
		middleware.NewRateLimit(limiter, resolver, "play"))
	api.Post("/media/:id/download", h.Engage.Download,
		middleware.NewRateLimit(limiter, resolver, "download"))
	api.Post("/media/:id/view", h.Engage.View,
		middleware.NewRateLimit(limiter, resolver, "view"))
	api.Get("/media/:id/counts", h.Engage.CountByPeriod)

	// Activity feed + live stream
	api.Get("/activity/recent", h.Activity.Recent)
	api.Get("/activity/stream", h.Activity.Stream)
}
