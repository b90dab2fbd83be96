package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/ledgerflow/internal/logging"
)

func TestRequireRole(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logging.Discard())})
	app.Get("/all", RequireRole(RoleAdmin, RoleAdvisor), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	cases := map[string]int{
		"":         http.StatusForbidden,
		"root":     http.StatusForbidden,
		"customer": http.StatusForbidden,
		"advisor":  http.StatusOK,
		" Admin ":  http.StatusOK,
	}
	for role, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/all", nil)
		if role != "" {
			req.Header.Set(roleHeader, role)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "role %q", role)
	}
}
