package middleware

import (
	"crypto/hmac"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/env"
)

// APIKeyAuthMiddleware authenticates operational API requests carrying
// the configured service API key header. Routes stay closed when no key
// is configured.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		configured := strings.TrimSpace(env.GetEnv("APP_API_KEY", ""))
		if configured == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "API access is not configured"})
		}

		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		if !hmac.Equal([]byte(apiKey), []byte(configured)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
		}

		return c.Next()
	}
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
