package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/install"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
)

// InstallController handles the OAuth install flow HTTP requests
type InstallController struct {
	cfg       *config.AppConfig
	installer *install.Service
}

var installController *InstallController

// InitializeInstallController wires the install controller with its service
func InitializeInstallController(cfg *config.AppConfig, installer *install.Service) {
	installController = &InstallController{cfg: cfg, installer: installer}
}

// GetInstallController returns the initialized install controller
func GetInstallController() *InstallController {
	if installController == nil {
		panic("Install controller not initialized. Call InitializeInstallController first.")
	}
	return installController
}

// HandleInstall starts the install flow for the shop named in the query
// and redirects the merchant to the consent page (or straight to the
// platform app page when already installed).
func (ic *InstallController) HandleInstall(c *fiber.Ctx) error {
	shopDomain := strings.TrimSpace(c.Query("shop"))
	if shopDomain == "" {
		return errorJSON(c, fiber.StatusBadRequest, "missing shop parameter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	target, err := ic.installer.BeginInstall(ctx, shopDomain)
	if err != nil {
		log.Errorf("[Install] begin failed for %s: %v", shopDomain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "install could not be started")
	}

	return c.Redirect(target, fiber.StatusSeeOther)
}

// HandleInstallRedirectURI completes the OAuth callback. The signature
// and nonce are verified before any state changes; verification
// failures are a 401, remote failures leave the shop retriable.
func (ic *InstallController) HandleInstallRedirectURI(c *fiber.Ctx) error {
	query := queryValues(c)
	shopDomain := strings.TrimSpace(query.Get("shop"))
	if shopDomain == "" {
		return errorJSON(c, fiber.StatusBadRequest, "missing shop parameter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := ic.installer.CompleteInstall(ctx, shopDomain, query); err != nil {
		if errors.Is(err, shopauth.ErrSignatureMismatch) || errors.Is(err, shopauth.ErrNonceMismatch) {
			return errorJSON(c, fiber.StatusUnauthorized, "callback verification failed")
		}
		log.Errorf("[Install] completion failed for %s: %v", shopDomain, err)
		return errorJSON(c, fiber.StatusBadGateway, "install could not be completed, please retry")
	}

	return c.Redirect(ic.cfg.PlatformAppURL, fiber.StatusSeeOther)
}
