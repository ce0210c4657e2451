package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HandyCommerce/ShopBridge/app/controllers"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/constants"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/middleware"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
)

type HttpRouter struct {
	verifier *shopauth.Verifier
}

func NewHttpRouter(verifier *shopauth.Verifier) *HttpRouter {
	return &HttpRouter{verifier: verifier}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	installCtrl := controllers.GetInstallController()
	billingCtrl := controllers.GetBillingController()
	webhookCtrl := controllers.GetWebhookController()

	// Merchant-facing install flow
	app.Get(constants.InstallRoute, installCtrl.HandleInstall)
	app.Get(constants.InstallRedirectRoute, installCtrl.HandleInstallRedirectURI)

	// Embedded admin surface, authenticated per request via session token
	admin := app.Group("/admin", middleware.SessionTokenAuthMiddleware(h.verifier), middleware.RequireShop)
	admin.Get("/billing", billingCtrl.HandleGetBilling)
	admin.Post("/plan", billingCtrl.HandleChangePlan)

	// Charge confirmation return target (bypass token or signed app proxy)
	app.Get(constants.ChargeActivateRoute, billingCtrl.HandleChargeActivate)

	// Platform webhooks, verified against the raw body
	app.Post(constants.WebhookRoute, webhookCtrl.HandleWebhook)
}
