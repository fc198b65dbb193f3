package service

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/repository"
)

// Result-count clamp: callers must not be able to force unbounded scans.
const (
	MinRankingLimit = 1
	MaxRankingLimit = 50
)

// ClampLimit bounds a requested result count to [1, 50].
func ClampLimit(limit int) int {
	if limit < MinRankingLimit {
		return MinRankingLimit
	}
	if limit > MaxRankingLimit {
		return MaxRankingLimit
	}
	return limit
}

// RankingService serves the three read-only ranking views over the ledger,
// with a Redis cache-aside in front. Reads degrade to empty listings when
// storage is down so dashboards stay renderable.
type RankingService struct {
	media *repository.MediaRepo
	cache *CacheService
}

func NewRankingService(media *repository.MediaRepo, cache *CacheService) *RankingService {
	return &RankingService{media: media, cache: cache}
}

// GetTrendingMedia ranks by 24h engagement velocity: the raw count of play,
// download, and vote events, sign-agnostic.
func (s *RankingService) GetTrendingMedia(ctx context.Context, limit int) []model.RankedMedia {
	limit = ClampLimit(limit)
	return s.cached(ctx, "trending", fmt.Sprintf("limit=%d", limit), func() ([]model.RankedMedia, error) {
		return s.media.Trending(ctx, limit)
	})
}

// GetPopularMedia ranks by play count within the caller's period. The
// unbounded period reads the lifetime counter instead of scanning the log.
func (s *RankingService) GetPopularMedia(ctx context.Context, period model.Period, limit int) []model.RankedMedia {
	limit = ClampLimit(limit)
	return s.cached(ctx, "popular", fmt.Sprintf("period=%s;limit=%d", period, limit), func() ([]model.RankedMedia, error) {
		return s.media.Popular(ctx, period, limit)
	})
}

// GetHotMedia ranks by the precomputed decayed hotness score column.
func (s *RankingService) GetHotMedia(ctx context.Context, limit int) []model.RankedMedia {
	limit = ClampLimit(limit)
	return s.cached(ctx, "hot", fmt.Sprintf("limit=%d", limit), func() ([]model.RankedMedia, error) {
		return s.media.Hot(ctx, limit)
	})
}

func (s *RankingService) cached(ctx context.Context, view, variant string, load func() ([]model.RankedMedia, error)) []model.RankedMedia {
	if s.cache != nil {
		if data, err := s.cache.GetRanking(ctx, view, variant); err == nil && data != nil {
			var ranked []model.RankedMedia
			if err := json.Unmarshal(data, &ranked); err == nil {
				return ranked
			}
		}
	}

	ranked, err := load()
	if err != nil {
		log.Error().Err(err).Str("view", view).Msg("ranking: query failed")
		return nil
	}

	if s.cache != nil && ranked != nil {
		if err := s.cache.SetRanking(ctx, view, variant, ranked); err != nil {
			log.Warn().Err(err).Str("view", view).Msg("ranking: cache write failed")
		}
	}
	return ranked
}
