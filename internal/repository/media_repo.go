package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

// FindByID returns one media row's engagement view.
func (r *MediaRepo) FindByID(ctx context.Context, mediaID int64) (*model.Media, error) {
	var m model.Media
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, upvotes, downvotes, play_count, download_count,
		       view_count, hotness_score, created_at
		FROM media WHERE id = $1`,
		mediaID).Scan(
		&m.ID, &m.Title, &m.Upvotes, &m.Downvotes, &m.PlayCount,
		&m.DownloadCount, &m.ViewCount, &m.HotnessScore, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMediaNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Trending ranks media by engagement velocity: the raw count of play,
// download, and vote events in the trailing 24 hours. Ties fall back to
// store order, no further guarantee.
func (r *MediaRepo) Trending(ctx context.Context, limit int) ([]model.RankedMedia, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.title, COUNT(e.id) AS velocity
		FROM media m
		JOIN engagement_events e ON e.media_file_id = m.id
		WHERE e.created_at >= NOW() - INTERVAL '24 hours'
		  AND e.kind IN ('play', 'download', 'vote')
		GROUP BY m.id, m.title
		ORDER BY velocity DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows)
}

// Popular ranks media by play count within the caller's period. The
// unbounded period reads the denormalized lifetime counter directly instead
// of scanning the log; both agree on unbounded windows.
func (r *MediaRepo) Popular(ctx context.Context, period model.Period, limit int) ([]model.RankedMedia, error) {
	if period == model.PeriodAll {
		rows, err := r.pool.Query(ctx, `
			SELECT id, title, play_count
			FROM media
			WHERE play_count > 0
			ORDER BY play_count DESC
			LIMIT $1`, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return scanRanked(rows)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.title, COUNT(e.id) AS plays
		FROM media m
		JOIN engagement_events e ON e.media_file_id = m.id
		WHERE e.kind = 'play' AND e.created_at >= $1
		GROUP BY m.id, m.title
		ORDER BY plays DESC
		LIMIT $2`,
		time.Now().Add(-period.Duration()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRanked(rows)
}

// Hot ranks media by the precomputed decayed hotness score column. No
// on-the-fly scoring, and no score floor: net-negative engagement still
// ranks, it just ranks last.
func (r *MediaRepo) Hot(ctx context.Context, limit int) ([]model.RankedMedia, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, hotness_score
		FROM media
		ORDER BY hotness_score DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ranked, err := scanRanked(rows)
	for i := range ranked {
		ranked[i].HotnessScore = ranked[i].Value
	}
	return ranked, err
}

// MediaAge pairs a media id with its creation time, for age-based scoring.
type MediaAge struct {
	ID        int64
	CreatedAt time.Time
}

// ListIDs returns every media id with its creation time, for the hotness
// recompute batch.
func (r *MediaRepo) ListIDs(ctx context.Context) ([]MediaAge, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, created_at FROM media`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MediaAge
	for rows.Next() {
		var e MediaAge
		if err := rows.Scan(&e.ID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateHotness writes a recomputed score and its recompute timestamp.
func (r *MediaRepo) UpdateHotness(ctx context.Context, mediaID int64, score int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE media SET hotness_score = $1, hotness_updated_at = NOW()
		WHERE id = $2`, score, mediaID)
	return err
}

func scanRanked(rows pgx.Rows) ([]model.RankedMedia, error) {
	var out []model.RankedMedia
	for rows.Next() {
		var m model.RankedMedia
		if err := rows.Scan(&m.ID, &m.Title, &m.Value); err != nil {
			return nil, err
		}
		m.Rank = len(out) + 1
		out = append(out, m)
	}
	return out, rows.Err()
}
