package entitlement

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopify"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shoplock"
)

var (
	// ErrPlanNotFound is returned for unknown or inactive plan names.
	ErrPlanNotFound = errors.New("billing plan not found")
	// ErrChargeNotActive is returned when the platform does not confirm
	// the charge as active; local state stays untouched and the merchant
	// may retry.
	ErrChargeNotActive = errors.New("recurring charge is not active")
)

// BillingAPI is the slice of the platform client the entitlement manager
// needs.
type BillingAPI interface {
	ListRecurringCharges(ctx context.Context, shopDomain, accessToken string) ([]shopify.RecurringCharge, error)
	CancelRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) error
	CreateRecurringCharge(ctx context.Context, shopDomain, accessToken string, in shopify.CreateRecurringChargeInput) (string, error)
	GetRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*shopify.RecurringCharge, error)
	ActivateRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*shopify.RecurringCharge, error)
}

// Service owns Plan and Subscription state and keeps it consistent with
// the platform's billing system.
type Service struct {
	cfg      *config.AppConfig
	plans    repository.PlanRepository
	subs     repository.SubscriptionRepository
	api      BillingAPI
	verifier *shopauth.Verifier
	locks    *shoplock.Keyed
}

// NewService creates the entitlement manager.
func NewService(cfg *config.AppConfig, repos *repository.Repositories, api BillingAPI, verifier *shopauth.Verifier, locks *shoplock.Keyed) *Service {
	return &Service{
		cfg:      cfg,
		plans:    repos.Plan,
		subs:     repos.Subscription,
		api:      api,
		verifier: verifier,
		locks:    locks,
	}
}

// ChangePlanResult reports what a plan change did. Free plans activate
// immediately; paid plans return a confirmation URL and change nothing
// locally until the merchant approves and the charge activates.
type ChangePlanResult struct {
	Activated       bool
	ConfirmationURL string
	Subscription    *models.Subscription
}

// ChangePlan switches the shop to the requested plan. The price-zero and
// price-positive paths are distinct policies: the free path cancels every
// billable remote charge first and then flips local state synchronously,
// while the paid path only opens a pending remote charge.
func (s *Service) ChangePlan(ctx context.Context, shop *models.Shop, planName string) (*ChangePlanResult, error) {
	plan, err := s.plans.GetByName(planName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if !plan.Active {
		return nil, ErrPlanNotFound
	}

	if plan.IsFree() {
		return s.changeToFreePlan(ctx, shop, plan)
	}
	return s.requestPaidPlan(ctx, shop, plan)
}

// changeToFreePlan cancels all billable remote charges and, only after
// every cancellation succeeded, replaces the local subscription. A single
// cancellation failure aborts with no local change.
func (s *Service) changeToFreePlan(ctx context.Context, shop *models.Shop, plan *models.Plan) (*ChangePlanResult, error) {
	charges, err := s.api.ListRecurringCharges(ctx, shop.Domain, shop.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("list remote charges: %w", err)
	}

	for _, charge := range charges {
		if !charge.IsBillable() {
			continue
		}
		if err := s.api.CancelRecurringCharge(ctx, shop.Domain, shop.AccessToken, charge.ID); err != nil {
			return nil, fmt.Errorf("cancel charge %s: %w", charge.ID, err)
		}
		log.Infof("[Billing] cancelled charge %s for %s", charge.ID, shop.Domain)
	}

	var sub *models.Subscription
	err = s.locks.Do(shop.Domain, func() error {
		var rerr error
		sub, rerr = s.subs.ReplaceActive(shop.ID, plan.ID, time.Now())
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("replace subscription: %w", err)
	}

	log.Infof("[Billing] %s moved to plan %s", shop.Domain, plan.Name)
	return &ChangePlanResult{Activated: true, Subscription: sub}, nil
}

// requestPaidPlan opens a pending remote charge and hands back the
// merchant confirmation URL. Deliberately no local mutation here: access
// is granted only once the platform confirms the charge active.
func (s *Service) requestPaidPlan(ctx context.Context, shop *models.Shop, plan *models.Plan) (*ChangePlanResult, error) {
	returnURL, err := s.activationReturnURL(shop, plan)
	if err != nil {
		return nil, err
	}

	confirmationURL, err := s.api.CreateRecurringCharge(ctx, shop.Domain, shop.AccessToken, shopify.CreateRecurringChargeInput{
		Name:       plan.Name,
		PriceCents: plan.PriceCents,
		TrialDays:  plan.TrialDays,
		Test:       plan.Test || shop.UsesTestCharges(),
		ReturnURL:  returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create recurring charge: %w", err)
	}

	log.Infof("[Billing] pending charge for %s on plan %s", shop.Domain, plan.Name)
	return &ChangePlanResult{ConfirmationURL: confirmationURL}, nil
}

// activationReturnURL builds the platform return redirect and arms it
// with a one-time bypass token, since the platform strips our signature
// parameters from its redirect.
func (s *Service) activationReturnURL(shop *models.Shop, plan *models.Plan) (string, error) {
	token, err := s.verifier.MintBypassToken()
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("shop", shop.Domain)
	q.Set("billing_plan", plan.Name)
	q.Set("bypass_token", token)
	if plan.Test || shop.UsesTestCharges() {
		q.Set("test_flag", "true")
	}
	return s.cfg.AppBaseURL + "/embed/billing_charge_activate?" + q.Encode(), nil
}

// ActivateCharge confirms a merchant-approved charge and flips local
// state. The remote status is re-fetched first; anything but an active
// charge fails without mutation. The end-then-start swap runs under the
// per-shop lock so racing confirmations serialize into one active row.
func (s *Service) ActivateCharge(ctx context.Context, shop *models.Shop, chargeID, planName string) (*models.Subscription, error) {
	plan, err := s.plans.GetByName(planName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}

	charge, err := s.api.GetRecurringCharge(ctx, shop.Domain, shop.AccessToken, chargeID)
	if err != nil {
		return nil, fmt.Errorf("fetch charge %s: %w", chargeID, err)
	}
	if charge.Status == shopify.ChargeStatusAccepted {
		charge, err = s.api.ActivateRecurringCharge(ctx, shop.Domain, shop.AccessToken, chargeID)
		if err != nil {
			return nil, fmt.Errorf("activate charge %s: %w", chargeID, err)
		}
	}
	if charge.Status != shopify.ChargeStatusActive {
		return nil, ErrChargeNotActive
	}

	var sub *models.Subscription
	err = s.locks.Do(shop.Domain, func() error {
		current, gerr := s.subs.GetActiveByShop(shop.ID)
		if gerr == nil && current.PlanID == plan.ID {
			// A racing confirmation already activated this plan.
			sub = current
			return nil
		}
		if gerr != nil && !errors.Is(gerr, gorm.ErrRecordNotFound) {
			return gerr
		}
		var rerr error
		sub, rerr = s.subs.ReplaceActive(shop.ID, plan.ID, time.Now())
		return rerr
	})
	if err != nil {
		return nil, fmt.Errorf("replace subscription: %w", err)
	}

	log.Infof("[Billing] charge %s active, %s on plan %s", chargeID, shop.Domain, plan.Name)
	return sub, nil
}

// GetBillingPlan returns the shop's currently entitled plan. Shops with
// no subscription are on the free tier.
func (s *Service) GetBillingPlan(ctx context.Context, shop *models.Shop) (*models.Plan, *models.Subscription, error) {
	_ = ctx
	sub, err := s.subs.GetActiveByShop(shop.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			free, ferr := s.plans.GetByName(models.PlanNameFree)
			if ferr != nil {
				return nil, nil, ferr
			}
			return free, nil, nil
		}
		return nil, nil, err
	}

	plan, err := s.plans.GetByID(sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return plan, sub, nil
}
