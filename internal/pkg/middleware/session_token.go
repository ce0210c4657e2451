package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/constants"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopcontext"
)

// SessionTokenAuthMiddleware authenticates embedded admin requests via
// the platform's short-lived session token. The verified token names
// the shop; the shop row must exist and be installed.
func SessionTokenAuthMiddleware(verifier *shopauth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractSessionToken(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing session token"})
		}

		claims, err := verifier.VerifySessionToken(token, time.Now())
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid session token"})
		}

		domain := shopDomainFromDest(claims.Dest)
		if domain == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Token has no shop destination"})
		}

		shop, err := repository.GetGlobalFactory().GetShopRepository().GetByDomain(domain)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Unknown shop"})
			}
			log.Errorf("[Middleware] shop lookup failed for %s: %v", domain, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Shop lookup failed"})
		}
		if !shop.Installed {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Shop is not installed"})
		}

		shopcontext.Set(c, shopcontext.ShopContext{
			Shop:            shop,
			Domain:          shop.Domain,
			IsAuthenticated: true,
		})
		return c.Next()
	}
}

func extractSessionToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Get(constants.HeaderSessionToken)); token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// shopDomainFromDest strips the scheme from the token's dest claim,
// which arrives as an origin like https://foo.example.com.
func shopDomainFromDest(dest string) string {
	dest = strings.TrimSpace(dest)
	dest = strings.TrimPrefix(dest, "https://")
	dest = strings.TrimPrefix(dest, "http://")
	return strings.TrimSuffix(dest, "/")
}
