package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// coded is implemented by domain errors that carry their own status and code.
type coded interface {
	error
	StatusCode() int
	Code() string
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders every error as {"error": code, "message": msg}.
// Server-side failures are logged and their details withheld.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		code := "INTERNAL_ERROR"
		msg := err.Error()

		var domainErr coded
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &domainErr):
			status = domainErr.StatusCode()
			code = domainErr.Code()
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			code = codeForStatus(status)
			msg = fiberErr.Message
		}

		if status >= http.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err,
			)
			if code == "INTERNAL_ERROR" {
				msg = "internal error"
			}
		}

		return c.Status(status).JSON(errorBody{
			Error:     code,
			Message:   msg,
			RequestID: GetRequestID(c),
		})
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return "VALIDATION_ERROR"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}
