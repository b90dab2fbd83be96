package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledgerflow/internal/ledger"
	"github.com/congo-pay/ledgerflow/internal/middleware"
)

// RegisterTransactionRoutes wires transaction endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *ledger.Handler, submitGuards ...fiber.Handler) {
	g := r.Group("/transactions")
	g.Post("", append(submitGuards, h.Submit)...)
	g.Get("/all", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAdvisor), h.ListAll)
	g.Get("/account/:id", h.ListForAccount)
	g.Put("/:id/status", middleware.RequireRole(middleware.RoleAdmin), h.UpdateStatus)
}
