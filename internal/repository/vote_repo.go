package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// ErrMediaNotFound is returned when a referenced media file does not exist.
var ErrMediaNotFound = errors.New("media file not found")

type VoteRepo struct {
	pool *pgxpool.Pool
}

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// UpsertVote inserts or updates a vote using atomic SQL on the
// (media_file_id, identity_hash) uniqueness constraint, appends a raw vote
// event, then recomputes the media's denormalized vote counters from a fresh
// COUNT. Recompute-from-source rather than increment arithmetic: any prior
// drift in the counters heals on the next mutation.
// sessionID is optional client-supplied correlation metadata, stored with
// the vote row; empty means none.
// Returns the previous vote type, empty if this identity had no prior vote.
func (r *VoteRepo) UpsertVote(ctx context.Context, mediaID int64, identityHash, voteType, sessionID string) (previous string, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if err := mediaExists(ctx, tx, mediaID); err != nil {
		return "", err
	}

	err = tx.QueryRow(ctx, `
		SELECT vote_type FROM media_votes
		WHERE media_file_id = $1 AND identity_hash = $2`,
		mediaID, identityHash).Scan(&previous)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	// Same-type revote is a no-op that still reports the previous vote.
	if previous == voteType {
		return previous, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO media_votes (media_file_id, identity_hash, vote_type, session_id, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NOW())
		ON CONFLICT (media_file_id, identity_hash) DO UPDATE
		SET vote_type = EXCLUDED.vote_type, session_id = EXCLUDED.session_id, updated_at = NOW()`,
		mediaID, identityHash, voteType, sessionID)
	if err != nil {
		return "", err
	}

	// Raw vote event; Trending counts these, sign-agnostic.
	_, err = tx.Exec(ctx, `
		INSERT INTO engagement_events (media_file_id, identity_hash, kind, created_at)
		VALUES ($1, $2, 'vote', NOW())`,
		mediaID, identityHash)
	if err != nil {
		return "", err
	}

	if err := recomputeVoteCounts(ctx, tx, mediaID); err != nil {
		return "", err
	}

	return previous, tx.Commit(ctx)
}

// RemoveVote deletes the identity's vote on the media if present (no-op if
// absent), then recomputes the denormalized counters the same way.
func (r *VoteRepo) RemoveVote(ctx context.Context, mediaID int64, identityHash string) (previous string, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if err := mediaExists(ctx, tx, mediaID); err != nil {
		return "", err
	}

	err = tx.QueryRow(ctx, `
		DELETE FROM media_votes
		WHERE media_file_id = $1 AND identity_hash = $2
		RETURNING vote_type`,
		mediaID, identityHash).Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		// Nothing to retract; counters are already consistent.
		return "", tx.Commit(ctx)
	}
	if err != nil {
		return "", err
	}

	if err := recomputeVoteCounts(ctx, tx, mediaID); err != nil {
		return "", err
	}

	return previous, tx.Commit(ctx)
}

// GetVoteCounts derives the up/down tallies from raw vote rows. Used for
// live reads and as the source of truth for counter recomputation.
func (r *VoteRepo) GetVoteCounts(ctx context.Context, mediaID int64) (model.VoteCounts, error) {
	var counts model.VoteCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE vote_type = 'up'),
			COUNT(*) FILTER (WHERE vote_type = 'down')
		FROM media_votes
		WHERE media_file_id = $1`,
		mediaID).Scan(&counts.Upvotes, &counts.Downvotes)
	return counts, err
}

// recomputeVoteCounts rewrites the media's denormalized counters from a
// fresh count inside the caller's transaction, so it sees the caller's own
// uncommitted writes.
func recomputeVoteCounts(ctx context.Context, tx pgx.Tx, mediaID int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE media SET
			upvotes = (SELECT COUNT(*) FROM media_votes
			           WHERE media_file_id = $1 AND vote_type = 'up'),
			downvotes = (SELECT COUNT(*) FROM media_votes
			             WHERE media_file_id = $1 AND vote_type = 'down')
		WHERE id = $1`, mediaID)
	return err
}

func mediaExists(ctx context.Context, tx pgx.Tx, mediaID int64) error {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM media WHERE id = $1)`, mediaID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrMediaNotFound
	}
	return nil
}
