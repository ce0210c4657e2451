package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
)

func InstallRouter(app *fiber.App, verifier *shopauth.Verifier) {
	// Install HttpRouter first to initialize the session store, then the
	// operational API routes.
	setup(app, NewHttpRouter(verifier), NewApiRouter())
}
func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
