package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/NobleVision/MUSIC-sub000/internal/identity"
	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

type VoteHandler struct {
	ledger   *service.LedgerService
	activity *service.ActivityService
	resolver *identity.Resolver
}

func NewVoteHandler(ledger *service.LedgerService, activity *service.ActivityService, resolver *identity.Resolver) *VoteHandler {
	return &VoteHandler{ledger: ledger, activity: activity, resolver: resolver}
}

// Submit handles POST /api/media/:id/vote
func (h *VoteHandler) Submit(c fiber.Ctx) error {
	mediaID, errMsg := middleware.ValidateMediaID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	var req model.VoteRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	voteType, errMsg := middleware.ValidateVoteType(req.VoteType)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VOTE_TYPE", errMsg)
	}

	token := middleware.IdentityFromCtx(c, h.resolver)

	result, err := h.ledger.UpsertVote(c.Context(), mediaID, token, voteType, strings.TrimSpace(req.SessionID))
	if errors.Is(err, service.ErrMediaNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Media file not found")
	}
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}

	Metrics.VotesTotal.WithLabelValues(voteType).Inc()

	media := h.ledger.GetMedia(c.Context(), mediaID)
	title := ""
	if media != nil {
		title = media.Title
	}
	h.activity.BroadcastActivity(c.Context(), model.ActionVote, mediaID, title, "")

	counts := h.ledger.GetVoteCounts(c.Context(), mediaID)
	return c.JSON(fiber.Map{
		"success":      true,
		"previousVote": result.PreviousVote,
		"upvotes":      counts.Upvotes,
		"downvotes":    counts.Downvotes,
	})
}

// Delete handles DELETE /api/media/:id/vote
func (h *VoteHandler) Delete(c fiber.Ctx) error {
	mediaID, errMsg := middleware.ValidateMediaID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	token := middleware.IdentityFromCtx(c, h.resolver)

	result, err := h.ledger.RemoveVote(c.Context(), mediaID, token)
	if errors.Is(err, service.ErrMediaNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Media file not found")
	}
	if !result.Success {
		return c.Status(fiber.StatusServiceUnavailable).JSON(result)
	}

	counts := h.ledger.GetVoteCounts(c.Context(), mediaID)
	return c.JSON(fiber.Map{
		"success":      true,
		"previousVote": result.PreviousVote,
		"upvotes":      counts.Upvotes,
		"downvotes":    counts.Downvotes,
	})
}

// Counts handles GET /api/media/:id/votes
func (h *VoteHandler) Counts(c fiber.Ctx) error {
	mediaID, errMsg := middleware.ValidateMediaID(c.Params("id"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	return c.JSON(h.ledger.GetVoteCounts(c.Context(), mediaID))
}
