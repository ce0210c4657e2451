package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopcontext"
)

// RequireShop ensures an authenticated shop context and returns JSON 401 otherwise.
func RequireShop(c *fiber.Ctx) error {
	if !shopcontext.IsAuthenticated(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "shop authentication required",
		})
	}
	return c.Next()
}
