package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/NobleVision/MUSIC-sub000/internal/model"
)

// MaxLocationLen bounds the optional coarse-location field on activity items.
const MaxLocationLen = 64

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateMediaID parses and checks a media file id path segment.
func ValidateMediaID(raw string) (int64, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "media id is required"
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, "media id must be a positive integer"
	}
	return id, ""
}

// ValidateVoteType checks the vote type field. Malformed input is rejected
// before it ever reaches the ledger.
func ValidateVoteType(voteType string) (string, string) {
	voteType = strings.ToLower(strings.TrimSpace(voteType))
	if voteType == "" {
		return "", "voteType is required"
	}
	if !model.ValidVoteTypes[voteType] {
		return "", "voteType must be one of: up, down"
	}
	return voteType, ""
}

// ValidatePeriod checks the ranking period query value, defaulting to the
// unbounded period when absent.
func ValidatePeriod(raw string) (model.Period, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.PeriodAll, ""
	}
	p := model.Period(raw)
	if !p.Valid() {
		return "", "period must be one of: 24h, 7d, 30d, all"
	}
	return p, ""
}

// ParseLimit parses a result-count query value, falling back to the default
// when absent or malformed. The service layer clamps the range.
func ParseLimit(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// SanitizeLocation trims and truncates the optional coarse-location value.
func SanitizeLocation(loc string) string {
	loc = strings.TrimSpace(loc)
	if len(loc) > MaxLocationLen {
		loc = loc[:MaxLocationLen]
	}
	return loc
}
