package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Duration("duration", time.Since(start)),
		}
		if role := c.Get(roleHeader); role != "" {
			attrs = append(attrs, slog.String("role", role))
		}
		if err != nil {
			// The error handler runs after this middleware and sets the final status.
			attrs = append(attrs, slog.Any("error", err))
			logger.WarnContext(c.UserContext(), "request failed", attrs...)
			return err
		}

		attrs = append(attrs, slog.Int("status", c.Response().StatusCode()))
		logger.InfoContext(c.UserContext(), "request completed", attrs...)
		return nil
	}
}
