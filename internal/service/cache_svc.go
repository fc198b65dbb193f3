package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RankingCacheTTL is short on purpose: ranking listings are cheap to rebuild
// and staleness is visible to users.
const RankingCacheTTL = 60 * time.Second

// CacheService provides a Redis cache-aside layer for ranking listings.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService creates a CacheService. If redisURL is empty or the
// connection fails, the client stays nil and cache operations become no-ops.
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Str("url", redisURL).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client (for health checks). May be nil.
func (c *CacheService) Client() *redis.Client {
	return c.rdb
}

// GetRanking retrieves a cached ranking listing. Returns nil if not cached
// or caching is disabled.
func (c *CacheService) GetRanking(ctx context.Context, view, variant string) ([]byte, error) {
	if c.rdb == nil {
		return nil, nil
	}
	data, err := c.rdb.Get(ctx, rankingKey(view, variant)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	return data, err
}

// SetRanking stores a ranking listing.
func (c *CacheService) SetRanking(ctx context.Context, view, variant string, data interface{}) error {
	if c.rdb == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, rankingKey(view, variant), b, RankingCacheTTL).Err()
}

// InvalidateRanking removes every cached variant of one ranking view.
func (c *CacheService) InvalidateRanking(ctx context.Context, view string) error {
	if c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, fmt.Sprintf("ranking:%s:*", view), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

func rankingKey(view, variant string) string {
	return fmt.Sprintf("ranking:%s:%s", view, variant)
}
