package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	callerHeader     = "X-Account-ID"
	submitRatePrefix = "rl:submit:"
)

// SubmitRateLimit caps submissions per caller per minute using Redis. The
// caller is the X-Account-ID header, falling back to the client IP. Cache
// errors fail open.
func SubmitRateLimit(cache redis.UniversalClient, maxPerMin int, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cache == nil || maxPerMin <= 0 {
			return c.Next()
		}
		caller := strings.TrimSpace(c.Get(callerHeader))
		if caller == "" {
			caller = c.IP()
		}
		key := submitRatePrefix + caller

		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.WarnContext(c.UserContext(), "rate limit check skipped", "error", err)
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many transactions, try again later")
		}
		return c.Next()
	}
}
