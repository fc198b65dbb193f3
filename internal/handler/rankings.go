package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/NobleVision/MUSIC-sub000/internal/middleware"
	"github.com/NobleVision/MUSIC-sub000/internal/model"
	"github.com/NobleVision/MUSIC-sub000/internal/service"
)

const defaultRankingLimit = 20

type RankingHandler struct {
	svc *service.RankingService
}

func NewRankingHandler(svc *service.RankingService) *RankingHandler {
	return &RankingHandler{svc: svc}
}

// Trending handles GET /api/media/trending
func (h *RankingHandler) Trending(c fiber.Ctx) error {
	limit := middleware.ParseLimit(c.Query("limit"), defaultRankingLimit)
	items := h.svc.GetTrendingMedia(c.Context(), limit)
	return c.JSON(fiber.Map{"items": nonNil(items)})
}

// Popular handles GET /api/media/popular
func (h *RankingHandler) Popular(c fiber.Ctx) error {
	period, errMsg := middleware.ValidatePeriod(c.Query("period"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PERIOD", errMsg)
	}
	limit := middleware.ParseLimit(c.Query("limit"), defaultRankingLimit)
	items := h.svc.GetPopularMedia(c.Context(), period, limit)
	return c.JSON(fiber.Map{"period": period, "items": nonNil(items)})
}

// Hot handles GET /api/media/hot
func (h *RankingHandler) Hot(c fiber.Ctx) error {
	limit := middleware.ParseLimit(c.Query("limit"), defaultRankingLimit)
	items := h.svc.GetHotMedia(c.Context(), limit)
	return c.JSON(fiber.Map{"items": nonNil(items)})
}

// nonNil keeps empty listings rendering as [] rather than null.
func nonNil(items []model.RankedMedia) []model.RankedMedia {
	if items == nil {
		return []model.RankedMedia{}
	}
	return items
}
