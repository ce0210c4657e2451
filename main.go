package main

import (
	"fmt"
	"log"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/HandyCommerce/ShopBridge/app/controllers"
	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/cache"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/database"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/entitlement"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/env"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/install"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/router"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopify"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shoplock"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/tokenstore"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/webhookqueue"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	cfg := config.Load()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()
	if err := repos.Plan.EnsureFreePlan(); err != nil {
		log.Fatalf("seed free plan: %v", err)
	}

	verifier := shopauth.NewVerifier(cfg.SharedSecret, cfg.ClientID)
	verifier.UseBypassTokenStore(tokenstore.New())
	locks := shoplock.New()
	client := shopify.NewClientFromEnv()

	installer := install.NewService(cfg, repos, client, verifier, locks)
	entitlements := entitlement.NewService(cfg, repos, client, verifier, locks)

	controllers.InitializeInstallController(cfg, installer)
	controllers.InitializeBillingController(cfg, entitlements, verifier, repos.Shop)
	controllers.InitializeWebhookController(verifier, repos.WebhookQueue)

	handlers := webhookqueue.DefaultHandlers(installer, repos.Shop)
	processor := webhookqueue.NewProcessor(repos.WebhookQueue, handlers, 0)
	if err := processor.Start(); err != nil {
		log.Fatalf("start webhook queue: %v", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 2 * 1024 * 1024, // webhook bodies are small
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: "./public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, verifier)

	return app
}
