package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/repository"
)

// HotnessWorker periodically recomputes the decayed hotness score for every
// media file from its trailing-24h engagement and age. Idempotent: two runs
// with no new engagement land on the same score, within rounding.
type HotnessWorker struct {
	media    *repository.MediaRepo
	events   *repository.EventRepo
	cache    *CacheService
	interval time.Duration

	// single-flight guard: overlapping runs would double read load for
	// no change in outcome.
	running atomic.Bool
}

func NewHotnessWorker(media *repository.MediaRepo, events *repository.EventRepo, cache *CacheService, interval time.Duration) *HotnessWorker {
	return &HotnessWorker{
		media:    media,
		events:   events,
		cache:    cache,
		interval: interval,
	}
}

// Start runs the recompute loop until the context is cancelled.
func (w *HotnessWorker) Start(ctx context.Context) {
	log.Info().Dur("interval", w.interval).Msg("hotness-worker: starting")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RecomputeAll(ctx)
		case <-ctx.Done():
			log.Info().Msg("hotness-worker: stopping")
			return
		}
	}
}

// RecomputeAll runs one batch pass over every media row. Returns the number
// of scores written, 0 if a pass was already in flight.
func (w *HotnessWorker) RecomputeAll(ctx context.Context) int {
	if !w.running.CompareAndSwap(false, true) {
		log.Warn().Msg("hotness-worker: previous pass still running, skipping")
		return 0
	}
	defer w.running.Store(false)

	start := time.Now()

	entries, err := w.media.ListIDs(ctx)
	if err != nil {
		log.Error().Err(err).Msg("hotness-worker: list media failed")
		return 0
	}

	updated := 0
	for _, e := range entries {
		metrics, err := w.events.RecentMetrics(ctx, e.ID, HotnessHalfLifeHours*time.Hour)
		if err != nil {
			log.Error().Err(err).Int64("media_id", e.ID).Msg("hotness-worker: metrics read failed")
			continue
		}
		metrics.AgeHours = time.Since(e.CreatedAt).Hours()

		score := CalculateHotnessScore(metrics)
		if err := w.media.UpdateHotness(ctx, e.ID, score); err != nil {
			log.Error().Err(err).Int64("media_id", e.ID).Msg("hotness-worker: score write failed")
			continue
		}
		updated++
	}

	if w.cache != nil {
		// Hot rankings changed; drop the cached listing.
		if err := w.cache.InvalidateRanking(ctx, "hot"); err != nil {
			log.Warn().Err(err).Msg("hotness-worker: cache invalidate failed")
		}
	}

	log.Info().Int("updated", updated).Int("total", len(entries)).
		Dur("took", time.Since(start)).Msg("hotness-worker: pass complete")
	return updated
}
