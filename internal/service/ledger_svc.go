package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/repository"
)

// LedgerService is the engagement ledger: idempotent vote storage, the
// append-only event log, and the denormalized counters derived from both.
// Callers are expected to have resolved identity and passed rate limiting.
//
// Failure semantics: write paths return {Success:false, Message} instead of
// propagating storage errors; read paths degrade to zero values so
// dashboards stay renderable when storage is down. Not-found is the one
// error that escapes, so handlers can 404.
type LedgerService struct {
	votes  *repository.VoteRepo
	events *repository.EventRepo
	media  *repository.MediaRepo
}

func NewLedgerService(votes *repository.VoteRepo, events *repository.EventRepo, media *repository.MediaRepo) *LedgerService {
	return &LedgerService{votes: votes, events: events, media: media}
}

// GetMedia reads one media row's engagement view. Degrades to nil when the
// row is missing or storage is unreachable.
func (s *LedgerService) GetMedia(ctx context.Context, mediaID int64) *model.Media {
	m, err := s.media.FindByID(ctx, mediaID)
	if err != nil {
		if !errors.Is(err, repository.ErrMediaNotFound) {
			log.Error().Err(err).Int64("media_id", mediaID).Msg("ledger: media read failed")
		}
		return nil
	}
	return m
}

// ErrMediaNotFound re-exported for handler convenience.
var ErrMediaNotFound = repository.ErrMediaNotFound

const storageUnavailableMsg = "engagement store unavailable, action not recorded"

// UpsertVote records or replaces the identity's vote on a media file. A
// same-type revote is a no-op that still reports the previous vote. The
// optional sessionID is stored alongside the vote for correlation.
func (s *LedgerService) UpsertVote(ctx context.Context, mediaID int64, identityHash, voteType, sessionID string) (model.VoteResult, error) {
	if !model.ValidVoteTypes[voteType] {
		return model.VoteResult{Success: false, Message: "invalid vote type"},
			errors.New("invalid vote type: " + voteType)
	}

	previous, err := s.votes.UpsertVote(ctx, mediaID, identityHash, voteType, sessionID)
	if errors.Is(err, repository.ErrMediaNotFound) {
		return model.VoteResult{Success: false, Message: "media not found"}, err
	}
	if err != nil {
		log.Error().Err(err).Int64("media_id", mediaID).Msg("ledger: vote upsert failed")
		return model.VoteResult{Success: false, Message: storageUnavailableMsg}, nil
	}
	return model.VoteResult{Success: true, PreviousVote: previous}, nil
}

// RemoveVote retracts the identity's vote if present; a no-op otherwise.
func (s *LedgerService) RemoveVote(ctx context.Context, mediaID int64, identityHash string) (model.VoteResult, error) {
	previous, err := s.votes.RemoveVote(ctx, mediaID, identityHash)
	if errors.Is(err, repository.ErrMediaNotFound) {
		return model.VoteResult{Success: false, Message: "media not found"}, err
	}
	if err != nil {
		log.Error().Err(err).Int64("media_id", mediaID).Msg("ledger: vote removal failed")
		return model.VoteResult{Success: false, Message: storageUnavailableMsg}, nil
	}
	return model.VoteResult{Success: true, PreviousVote: previous}, nil
}

// GetVoteCounts reads the current up/down tallies from raw vote rows.
// Degrades to zeroes when storage is unreachable.
func (s *LedgerService) GetVoteCounts(ctx context.Context, mediaID int64) model.VoteCounts {
	counts, err := s.votes.GetVoteCounts(ctx, mediaID)
	if err != nil {
		log.Error().Err(err).Int64("media_id", mediaID).Msg("ledger: vote count read failed")
		return model.VoteCounts{}
	}
	return counts
}

// RecordPlay appends a play event and bumps the lifetime play counter.
func (s *LedgerService) RecordPlay(ctx context.Context, mediaID int64, identityHash string) (model.LogResult, error) {
	return s.appendEvent(ctx, mediaID, identityHash, model.EventPlay)
}

// RecordDownload appends a download event and bumps the lifetime counter.
func (s *LedgerService) RecordDownload(ctx context.Context, mediaID int64, identityHash string) (model.LogResult, error) {
	return s.appendEvent(ctx, mediaID, identityHash, model.EventDownload)
}

// RecordView appends a view event and bumps the lifetime counter.
func (s *LedgerService) RecordView(ctx context.Context, mediaID int64, identityHash string) (model.LogResult, error) {
	return s.appendEvent(ctx, mediaID, identityHash, model.EventView)
}

func (s *LedgerService) appendEvent(ctx context.Context, mediaID int64, identityHash, kind string) (model.LogResult, error) {
	id, err := s.events.Append(ctx, mediaID, identityHash, kind)
	if errors.Is(err, repository.ErrMediaNotFound) {
		return model.LogResult{Success: false, Message: "media not found"}, err
	}
	if err != nil {
		log.Error().Err(err).Int64("media_id", mediaID).Str("kind", kind).
			Msg("ledger: event append failed")
		return model.LogResult{Success: false, Message: storageUnavailableMsg}, nil
	}
	return model.LogResult{Success: true, ID: id}, nil
}

// GetCountByPeriod counts one event kind for a media file within the
// trailing period. Degrades to zero on storage failure.
func (s *LedgerService) GetCountByPeriod(ctx context.Context, mediaID int64, kind string, period model.Period) int64 {
	count, err := s.events.CountByPeriod(ctx, mediaID, kind, period)
	if err != nil {
		log.Error().Err(err).Int64("media_id", mediaID).Str("kind", kind).
			Msg("ledger: period count failed")
		return 0
	}
	return count
}
