package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/config"
	"github.com/NobleVision/MUSIC-sub000/internal/db"
	"github.com/NobleVision/MUSIC-sub000/internal/handler"
	"github.com/NobleVision/MUSIC-sub000/internal/identity"
	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/ratelimit"
	"github.com/NobleVision/MUSIC-sub000/internal/repository"
	"github.com/NobleVision/MUSIC-sub000/internal/router"
	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

func main() {
	cfg := config.Load()
	middleware.InitLogger(cfg.LogLevel, "music-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	// Repositories
	voteRepo := repository.NewVoteRepo(pool)
	eventRepo := repository.NewEventRepo(pool)
	mediaRepo := repository.NewMediaRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)

	// Core services — explicitly constructed and owned; no ambient globals.
	resolver := identity.NewResolver(cfg.IPHashSalt)
	limiter := ratelimit.NewLimiter(ratelimit.DefaultRules())
	broadcaster := service.NewBroadcaster(cfg.HeartbeatInterval)
	ledger := service.NewLedgerService(voteRepo, eventRepo, mediaRepo)
	activity := service.NewActivityService(activityRepo, broadcaster, cfg.ActivityRetention)
	ranking := service.NewRankingService(mediaRepo, cache)
	hotnessWorker := service.NewHotnessWorker(mediaRepo, eventRepo, cache, cfg.HotnessInterval)

	handler.InitMetrics(pool, broadcaster)

	// Background loops: keepalives for live subscribers, periodic hotness
	// recomputation.
	go broadcaster.RunHeartbeat(ctx)
	go hotnessWorker.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      "Music Engagement API",
		ServerHeader: "music",
	})

	router.Setup(app, &router.Handlers{
		Vote:     handler.NewVoteHandler(ledger, activity, resolver),
		Engage:   handler.NewEngageHandler(ledger, activity, resolver),
		Ranking:  handler.NewRankingHandler(ranking),
		Activity: handler.NewActivityHandler(activity, broadcaster),
		Health:   handler.NewHealthHandler(pool, cache.Client()),
	}, limiter, resolver, cfg.CORSOrigins)

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		broadcaster.DisconnectAll()
		if err := app.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).
		Msg("music engagement backend starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
