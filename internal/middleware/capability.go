package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const roleHeader = "X-Account-Role"

// Role is a caller capability asserted by the upstream gateway.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleAdvisor  Role = "advisor"
	RoleCustomer Role = "customer"
)

func parseRole(raw string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleAdvisor, RoleCustomer:
		return r, true
	default:
		return "", false
	}
}

// RequireRole admits requests whose asserted role is one of allowed. Missing
// or unknown roles are refused.
func RequireRole(allowed ...Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := parseRole(c.Get(roleHeader))
		if !ok {
			return fiber.NewError(http.StatusForbidden, "role required")
		}
		for _, a := range allowed {
			if role == a {
				c.Locals("role", string(role))
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusForbidden, "access denied")
	}
}
