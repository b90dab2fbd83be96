package reconcile

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes reconciliation entries to operators.
type Handler struct {
	outbox *Outbox
}

// NewHandler builds a reconciliation HTTP handler.
func NewHandler(outbox *Outbox) *Handler {
	return &Handler{outbox: outbox}
}

// List returns entries, optionally filtered by the status query parameter.
func (h *Handler) List(c *fiber.Ctx) error {
	var status Status
	if raw := c.Query("status"); raw != "" {
		parsed, err := ParseStatus(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		status = parsed
	}
	entries, err := h.outbox.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(entries)
}
