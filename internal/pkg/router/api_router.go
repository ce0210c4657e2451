package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// Operational API, guarded by the service API key
	v1 := api.Group("/v1", middleware.APIKeyAuthMiddleware())
	v1.Get("/queue/stats", handleQueueStats)
	v1.Get("/shops/stats", handleShopStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func handleQueueStats(c *fiber.Ctx) error {
	pending, err := repository.GetGlobalFactory().GetWebhookQueueRepository().CountPending(models.QueueItemTypeShopWebhook)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "queue stats unavailable"})
	}
	return c.JSON(fiber.Map{"pending": pending})
}

func handleShopStats(c *fiber.Ctx) error {
	repos := repository.GetGlobalRepositories()
	total, err := repos.Shop.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "shop stats unavailable"})
	}
	installed, err := repos.InstalledShops.All()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "installed shops unavailable"})
	}
	return c.JSON(fiber.Map{"total": total, "installed": len(installed)})
}
