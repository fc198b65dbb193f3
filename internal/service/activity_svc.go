package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/repository"
)

// ActivityService records user-visible actions into the bounded feed and
// fans each one out to live subscribers. Persistence and live delivery are
// independent: a feed write failure is logged and the broadcast still goes
// out, and vice versa.
type ActivityService struct {
	repo        *repository.ActivityRepo
	broadcaster *Broadcaster
	retention   int
}

func NewActivityService(repo *repository.ActivityRepo, broadcaster *Broadcaster, retention int) *ActivityService {
	return &ActivityService{
		repo:        repo,
		broadcaster: broadcaster,
		retention:   retention,
	}
}

// BroadcastActivity is the convenience wrapper every mutating endpoint
// calls: persist the feed item, prune best-effort, push the live event.
func (s *ActivityService) BroadcastActivity(ctx context.Context, kind string, mediaID int64, mediaTitle, location string) {
	if !model.ValidActivityKinds[kind] {
		log.Warn().Str("kind", kind).Msg("activity: unknown action kind dropped")
		return
	}

	event := model.ActivityEvent{
		Type:      kind,
		Timestamp: time.Now().UTC(),
	}
	item := model.ActivityItem{Kind: kind}
	if mediaID > 0 {
		event.MediaID = mediaID
		item.MediaID = &mediaID
	}
	if mediaTitle != "" {
		event.MediaTitle = mediaTitle
		item.MediaTitle = &mediaTitle
	}
	if location != "" {
		event.Location = location
		item.Location = &location
	}

	if _, err := s.repo.Insert(ctx, item); err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("activity: feed insert failed")
	} else if pruned, err := s.repo.Prune(ctx, s.retention); err != nil {
		// Best-effort: live delivery never depends on pruning.
		log.Warn().Err(err).Msg("activity: prune failed")
	} else if pruned > 0 {
		log.Debug().Int64("pruned", pruned).Msg("activity: feed pruned")
	}

	s.broadcaster.Broadcast(event)
}

// Recent returns the newest feed items for a reconnecting client to catch
// up from before resubscribing. Degrades to empty on storage failure.
func (s *ActivityService) Recent(ctx context.Context, limit int) []model.ActivityItem {
	items, err := s.repo.Recent(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("activity: recent read failed")
		return nil
	}
	return items
}
