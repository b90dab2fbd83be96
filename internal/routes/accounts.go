package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ledgerflow/internal/account"
	"github.com/congo-pay/ledgerflow/internal/middleware"
)

// RegisterAccountRoutes wires account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Post("/accounts", middleware.RequireRole(middleware.RoleAdmin), h.Open)
	r.Get("/accounts", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAdvisor), h.List)
	r.Get("/accounts/:id", h.Get)
}
