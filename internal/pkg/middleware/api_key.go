package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/edupay/ipn-gateway/internal/pkg/env"
)

// RequireOperatorKey guards the monitoring API. The key is presented either
// as X-API-Key or as a bearer token; comparison is constant-time. With no
// OPERATOR_API_KEY configured every request is rejected rather than let the
// surface fall open.
func RequireOperatorKey(c *fiber.Ctx) error {
	configured := env.GetEnv("OPERATOR_API_KEY", "")
	if configured == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "operator API is not configured",
		})
	}

	presented := c.Get("X-API-Key")
	if presented == "" {
		auth := c.Get(fiber.HeaderAuthorization)
		if strings.HasPrefix(auth, "Bearer ") {
			presented = strings.TrimPrefix(auth, "Bearer ")
		}
	}

	if subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid API key",
		})
	}

	return c.Next()
}
