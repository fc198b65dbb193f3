package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// EventRepo owns the append-only engagement event log and the lifetime
// counters it feeds. Rows are never updated, deduplicated, or deleted:
// multiple plays by the same identity are multiple rows, and the unbounded
// period count must keep agreeing with the lifetime counter.
type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

// lifetimeColumn maps an event kind to the denormalized lifetime counter it
// increments. Lifetime counters are intentionally cheap increments, not
// recomputes: they are append-only-consistent, unlike vote counts which must
// reflect retractions.
var lifetimeColumn = map[string]string{
	model.EventPlay:     "play_count",
	model.EventDownload: "download_count",
	model.EventView:     "view_count",
}

// Append inserts one event row and unconditionally increments the matching
// lifetime counter on the media row.
func (r *EventRepo) Append(ctx context.Context, mediaID int64, identityHash, kind string) (int64, error) {
	col, ok := lifetimeColumn[kind]
	if !ok {
		return 0, fmt.Errorf("unsupported event kind: %s", kind)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO engagement_events (media_file_id, identity_hash, kind, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id`,
		mediaID, identityHash, kind).Scan(&id)
	if err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE media SET `+col+` = `+col+` + 1 WHERE id = $1`, mediaID)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrMediaNotFound
	}

	return id, tx.Commit(ctx)
}

// CountByPeriod counts events of one kind for a media file at or after
// now - period; the unbounded period applies no time filter.
func (r *EventRepo) CountByPeriod(ctx context.Context, mediaID int64, kind string, period model.Period) (int64, error) {
	if !period.Valid() {
		return 0, fmt.Errorf("invalid period: %s", period)
	}

	var count int64
	var err error
	if window := period.Duration(); window > 0 {
		err = r.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM engagement_events
			WHERE media_file_id = $1 AND kind = $2 AND created_at >= $3`,
			mediaID, kind, time.Now().Add(-window)).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `
			SELECT COUNT(*) FROM engagement_events
			WHERE media_file_id = $1 AND kind = $2`,
			mediaID, kind).Scan(&count)
	}
	return count, err
}

// RecentMetrics aggregates the trailing-window engagement for one media
// file: play/download/comment event counts plus the signed net of current
// votes updated inside the window. Scorer input, derived fresh every call.
func (r *EventRepo) RecentMetrics(ctx context.Context, mediaID int64, window time.Duration) (model.EngagementMetrics, error) {
	var m model.EngagementMetrics
	since := time.Now().Add(-window)

	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = 'play'),
			COUNT(*) FILTER (WHERE kind = 'download')
		FROM engagement_events
		WHERE media_file_id = $1 AND created_at >= $2`,
		mediaID, since).Scan(&m.RecentPlays, &m.RecentDownloads)
	if err != nil {
		return m, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(CASE vote_type WHEN 'up' THEN 1 ELSE -1 END), 0)
		FROM media_votes
		WHERE media_file_id = $1 AND updated_at >= $2`,
		mediaID, since).Scan(&m.RecentVotes)
	if err != nil {
		return m, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM comments
		WHERE media_file_id = $1 AND created_at >= $2`,
		mediaID, since).Scan(&m.RecentComments)
	if err != nil {
		return m, err
	}

	return m, nil
}
