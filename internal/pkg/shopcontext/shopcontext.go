package shopcontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HandyCommerce/ShopBridge/app/models"
)

// Locals keys set by the session token middleware
const (
	KeyShopContext = "SHOP_CONTEXT"
	KeyShopDomain  = "SHOP_DOMAIN"
)

// ShopContext represents the authenticated shop for a request
type ShopContext struct {
	Shop            *models.Shop
	Domain          string
	IsAuthenticated bool
}

// Set stores the shop context on the request
func Set(c *fiber.Ctx, ctx ShopContext) {
	c.Locals(KeyShopContext, ctx)
	c.Locals(KeyShopDomain, ctx.Domain)
}

// Get retrieves the shop context from fiber context
// Returns an unauthenticated context if none is set
func Get(c *fiber.Ctx) ShopContext {
	if ctx := c.Locals(KeyShopContext); ctx != nil {
		return ctx.(ShopContext)
	}
	return ShopContext{IsAuthenticated: false}
}

// IsAuthenticated checks if the current request carries a verified shop
func IsAuthenticated(c *fiber.Ctx) bool {
	return Get(c).IsAuthenticated
}

// GetShop returns the authenticated shop, or nil
func GetShop(c *fiber.Ctx) *models.Shop {
	return Get(c).Shop
}

// GetDomain returns the authenticated shop's domain, or empty string
func GetDomain(c *fiber.Ctx) string {
	return Get(c).Domain
}
