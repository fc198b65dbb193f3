package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// ActivityRepo owns the bounded activity feed: one row per user-visible
// action, pruned best-effort to the most recent N rows.
type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

// Insert appends one feed item and returns its id.
func (r *ActivityRepo) Insert(ctx context.Context, item model.ActivityItem) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO activity_feed (kind, media_file_id, media_title, location, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id`,
		item.Kind, item.MediaID, item.MediaTitle, item.Location).Scan(&id)
	return id, err
}

// Recent returns the newest items, newest first. Reconnecting stream clients
// fetch this once before resubscribing; there is no replay buffer beyond it.
func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]model.ActivityItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, media_file_id, media_title, location, created_at
		FROM activity_feed
		ORDER BY id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.ActivityItem
	for rows.Next() {
		var it model.ActivityItem
		if err := rows.Scan(&it.ID, &it.Kind, &it.MediaID, &it.MediaTitle, &it.Location, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Prune keeps only the most recent `retain` rows: delete all rows with id
// less than the id of the Nth-most-recent row. Best-effort; live delivery
// does not depend on it.
func (r *ActivityRepo) Prune(ctx context.Context, retain int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM activity_feed
		WHERE id < (
			SELECT COALESCE(MIN(id), 0) FROM (
				SELECT id FROM activity_feed ORDER BY id DESC LIMIT $1
			) recent
		)`, retain)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
