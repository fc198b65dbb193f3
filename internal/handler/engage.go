package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/NobleVision/MUSIC-sub000/internal/identity"
	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

// EngageHandler serves the play/download/view logging endpoints. Each call
// appends one event row, bumps the lifetime counter, and fans out a live
// activity update.
type EngageHandler struct {
	ledger   *service.LedgerService
	activity *service.ActivityService
	resolver *identity.Resolver
}

func NewEngageHandler(ledger *service.LedgerService, activity *service.ActivityService, resolver *identity.Resolver) *EngageHandler {
	return &EngageHandler{ledger: ledger, activity: activity, resolver: resolver}
}

// Play handles POST /api/media/:id/play
func (h *EngageHandler) Play(c fiber.Ctx) error {
	return h.record(c, model.EventPlay, h.ledger.RecordPlay)
}

// Download handles POST /api/media/:id/download
func (h *EngageHandler) Download(c fiber.Ctx) error {
	return h.record(c, model.EventDownload, h.ledger.RecordDownload)
}

// View handles POST /api/media/:id/view
func (h *EngageHandler) View(c fiber.Ctx) error {
	return h.record(c, model.EventView, h.ledger.RecordView)
}

type recordFn func(ctx context.Context, mediaID int64, identityHash string) (model.LogResult, error)

func (h *EngageHandler) record(c fiber.Ctx, kind string, fn recordFn) error {
	mediaID, errMsg := middleware.ValidateMediaID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	token := middleware.IdentityFromCtx(c, h.resolver)

	result, err := fn(c.Context(), mediaID, token)
	if errors.Is(err, service.ErrMediaNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Media file not found")
	}
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}

	Metrics.EngagementEventsTotal.WithLabelValues(kind).Inc()

	// Views are logged for analytics but not fanned out; they would
	// dominate the live feed.
	if kind != model.EventView {
		media := h.ledger.GetMedia(c.Context(), mediaID)
		title := ""
		if media != nil {
			title = media.Title
		}
		location := middleware.SanitizeLocation(c.Get("X-Client-Region"))
		h.activity.BroadcastActivity(c.Context(), kind, mediaID, title, location)
	}

	return c.JSON(result)
}

// CountByPeriod handles GET /api/media/:id/counts
func (h *EngageHandler) CountByPeriod(c fiber.Ctx) error {
	mediaID, errMsg := middleware.ValidateMediaID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	period, errMsg := middleware.ValidatePeriod(c.Query("period"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PERIOD", errMsg)
	}

	kind := c.Query("kind", model.EventPlay)
	switch kind {
	case model.EventPlay, model.EventDownload, model.EventView, model.EventVote:
	default:
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_KIND",
			"kind must be one of: play, download, view, vote")
	}

	count := h.ledger.GetCountByPeriod(c.Context(), mediaID, kind, period)
	return c.JSON(fiber.Map{
		"mediaFileId": mediaID,
		"kind":        kind,
		"period":      period,
		"count":       count,
	})
}
