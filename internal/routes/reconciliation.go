package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledgerflow/internal/middleware"
	"github.com/congo-pay/ledgerflow/internal/reconcile"
)

// RegisterReconciliationRoutes exposes the outbox to operators.
func RegisterReconciliationRoutes(r fiber.Router, h *reconcile.Handler) {
	r.Get("/reconciliation", middleware.RequireRole(middleware.RoleAdmin), h.List)
}
