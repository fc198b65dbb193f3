package middleware

import (
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/NobleVision/MUSIC-sub000/internal/identity"
	"github.com/NobleVision/MUSIC-sub000/internal/ratelimit"
)

// identityLocal is the fiber locals key the resolved identity token is
// stashed under, so handlers reuse the middleware's resolution.
const identityLocal = "identityHash"

// IdentityFromCtx returns the identity token resolved for this request.
// Falls back to resolving on the spot when no limiter middleware ran.
func IdentityFromCtx(c fiber.Ctx, resolver *identity.Resolver) string {
	if v, ok := c.Locals(identityLocal).(string); ok && v != "" {
		return v
	}
	return resolver.FromRequest(c.Get("X-Forwarded-For"), c.Get("X-Real-IP"), c.IP())
}

// NewRateLimit returns a Fiber middleware that gates one action kind behind
// the sliding-window limiter. Every ledger-writing endpoint is gated this
// way, uniformly before the write — a rejected action is never recorded or
// counted.
func NewRateLimit(limiter *ratelimit.Limiter, resolver *identity.Resolver, action string) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := resolver.FromRequest(c.Get("X-Forwarded-For"), c.Get("X-Real-IP"), c.IP())
		c.Locals(identityLocal, token)

		res := limiter.Check(token, action)
		setRateLimitHeaders(c, limiter, action, res)

		if !res.Allowed {
			retryAfter := int(time.Until(time.UnixMilli(res.ResetAt)).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": fiber.Map{
					"code":       "RATE_LIMITED",
					"message":    fmt.Sprintf("Too many requests. Try again in %d seconds.", retryAfter),
					"retryAfter": retryAfter,
				},
			})
		}

		return c.Next()
	}
}

func setRateLimitHeaders(c fiber.Ctx, limiter *ratelimit.Limiter, action string, res ratelimit.Result) {
	rule, ok := limiter.Rule(action)
	if !ok {
		// Unknown kinds fail open and advertise no limit.
		return
	}
	remaining := res.Remaining
	if remaining == math.MaxInt {
		remaining = rule.MaxRequests
	}
	c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", rule.MaxRequests))
	c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", res.ResetAt/1000))
}
