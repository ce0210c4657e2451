package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"
	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/entitlement"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopcontext"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopify"
)

// BillingController handles plan selection and charge activation
type BillingController struct {
	cfg          *config.AppConfig
	entitlements *entitlement.Service
	verifier     *shopauth.Verifier
	shops        repository.ShopRepository
	validate     *validator.Validate
}

var billingController *BillingController

// InitializeBillingController wires the billing controller with its services
func InitializeBillingController(cfg *config.AppConfig, entitlements *entitlement.Service, verifier *shopauth.Verifier, shops repository.ShopRepository) {
	billingController = &BillingController{
		cfg:          cfg,
		entitlements: entitlements,
		verifier:     verifier,
		shops:        shops,
		validate:     validator.New(),
	}
}

// GetBillingController returns the initialized billing controller
func GetBillingController() *BillingController {
	if billingController == nil {
		panic("Billing controller not initialized. Call InitializeBillingController first.")
	}
	return billingController
}

type changePlanRequest struct {
	Plan string `json:"plan" validate:"required,min=1,max=100"`
}

// HandleGetBilling returns the shop's current plan and subscription.
// Shops without a subscription report the free tier.
func (bc *BillingController) HandleGetBilling(c *fiber.Ctx) error {
	shop := shopcontext.GetShop(c)
	if shop == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "shop authentication required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	plan, sub, err := bc.entitlements.GetBillingPlan(ctx, shop)
	if err != nil {
		log.Errorf("[Billing] plan lookup failed for %s: %v", shop.Domain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "billing plan could not be loaded")
	}

	response := fiber.Map{"plan": plan}
	if sub != nil {
		response["subscription"] = sub
	}
	return c.JSON(response)
}

// HandleChangePlan switches the shop to the requested plan. Free plans
// take effect in the response; paid plans answer with the platform
// confirmation URL the merchant must visit.
func (bc *BillingController) HandleChangePlan(c *fiber.Ctx) error {
	shop := shopcontext.GetShop(c)
	if shop == nil {
		return errorJSON(c, fiber.StatusUnauthorized, "shop authentication required")
	}

	var req changePlanRequest
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := bc.validate.Struct(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "plan name is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	result, err := bc.entitlements.ChangePlan(ctx, shop, strings.TrimSpace(req.Plan))
	if err != nil {
		if errors.Is(err, entitlement.ErrPlanNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "unknown billing plan")
		}
		var remoteErr *shopify.RemoteAPIError
		if errors.As(err, &remoteErr) {
			log.Errorf("[Billing] plan change remote failure for %s: %v", shop.Domain, err)
			return errorJSON(c, fiber.StatusBadGateway, "billing platform is unavailable, please retry")
		}
		log.Errorf("[Billing] plan change failed for %s: %v", shop.Domain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "plan change failed")
	}

	response := fiber.Map{"activated": result.Activated}
	if result.ConfirmationURL != "" {
		response["confirmation_url"] = result.ConfirmationURL
	}
	if result.Subscription != nil {
		response["subscription"] = result.Subscription
	}
	return c.JSON(response)
}

// HandleChargeActivate is the return target of the platform's charge
// confirmation redirect. The platform strips our signature parameters,
// so the request authenticates via the one-time bypass token minted
// when the charge was created; signed app proxy requests pass too.
func (bc *BillingController) HandleChargeActivate(c *fiber.Ctx) error {
	query := queryValues(c)
	shopDomain := strings.TrimSpace(query.Get("shop"))
	if shopDomain == "" {
		return errorJSON(c, fiber.StatusBadRequest, "missing shop parameter")
	}

	authorized := false
	if token := query.Get("bypass_token"); token != "" && bc.verifier.ConsumeBypassToken(token) {
		authorized = true
	}
	if !authorized {
		if err := bc.verifier.VerifyAppProxy(query); err != nil {
			return errorJSON(c, fiber.StatusUnauthorized, "request verification failed")
		}
	}

	shop, err := bc.shops.GetByDomain(shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "unknown shop")
		}
		log.Errorf("[Billing] shop lookup failed for %s: %v", shopDomain, err)
		return errorJSON(c, fiber.StatusInternalServerError, "shop lookup failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	chargeID := strings.TrimSpace(query.Get("charge_id"))
	planName := strings.TrimSpace(query.Get("billing_plan"))
	if _, err := bc.entitlements.ActivateCharge(ctx, shop, chargeID, planName); err != nil {
		log.Errorf("[Billing] charge activation failed for %s: %v", shop.Domain, err)
		fm := fiber.Map{"type": "error", "message": "Plan activation failed, please try again"}
		return flash.WithError(c, fm).Redirect(bc.cfg.PlatformAppURL, fiber.StatusSeeOther)
	}

	fm := fiber.Map{"type": "success", "message": "Plan activated"}
	return flash.WithSuccess(c, fm).Redirect(bc.cfg.PlatformAppURL, fiber.StatusSeeOther)
}
