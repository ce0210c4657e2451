package entitlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopify"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shoplock"
)

// fakePlanRepo is an in-memory PlanRepository.
type fakePlanRepo struct {
	plans map[string]*models.Plan
}

func newFakePlanRepo(plans ...*models.Plan) *fakePlanRepo {
	f := &fakePlanRepo{plans: make(map[string]*models.Plan)}
	for i, p := range plans {
		p.ID = uint(i + 1)
		f.plans[p.Name] = p
	}
	return f
}

func (f *fakePlanRepo) Create(plan *models.Plan) error { f.plans[plan.Name] = plan; return nil }

func (f *fakePlanRepo) GetByID(id uint) (*models.Plan, error) {
	for _, p := range f.plans {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePlanRepo) GetByName(name string) (*models.Plan, error) {
	p, ok := f.plans[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlanRepo) ListActive() ([]models.Plan, error) { return nil, nil }

func (f *fakePlanRepo) Update(plan *models.Plan) error { return nil }

func (f *fakePlanRepo) EnsureFreePlan() error { return nil }

// fakeSubRepo is an in-memory SubscriptionRepository.
type fakeSubRepo struct {
	mu   sync.Mutex
	seq  uint
	subs []*models.Subscription
}

func (f *fakeSubRepo) GetActiveByShop(shopID uint) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.ShopID == shopID && s.Active {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSubRepo) ListByShop(shopID uint) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subs {
		if s.ShopID == shopID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSubRepo) ReplaceActive(shopID, planID uint, now time.Time) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.ShopID == shopID && s.Active {
			end := now
			s.Active = false
			s.EndAt = &end
		}
	}
	f.seq++
	sub := &models.Subscription{ID: f.seq, ShopID: shopID, PlanID: planID, StartAt: now, Active: true}
	f.subs = append(f.subs, sub)
	cp := *sub
	return &cp, nil
}

func (f *fakeSubRepo) EndActive(shopID uint, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.ShopID == shopID && s.Active {
			end := now
			s.Active = false
			s.EndAt = &end
		}
	}
	return nil
}

func (f *fakeSubRepo) active(shopID uint) []*models.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Subscription
	for _, s := range f.subs {
		if s.ShopID == shopID && s.Active {
			out = append(out, s)
		}
	}
	return out
}

// fakeBillingAPI scripts the remote billing side.
type fakeBillingAPI struct {
	mu         sync.Mutex
	charges    []shopify.RecurringCharge
	cancelErr  map[string]error
	cancelled  []string
	createErr  error
	chargeByID map[string]*shopify.RecurringCharge
	activated  []string
}

func (f *fakeBillingAPI) ListRecurringCharges(ctx context.Context, shopDomain, accessToken string) ([]shopify.RecurringCharge, error) {
	return f.charges, nil
}

func (f *fakeBillingAPI) CancelRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.cancelErr[chargeID]; err != nil {
		return err
	}
	f.cancelled = append(f.cancelled, chargeID)
	return nil
}

func (f *fakeBillingAPI) CreateRecurringCharge(ctx context.Context, shopDomain, accessToken string, in shopify.CreateRecurringChargeInput) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "https://platform.example.com/confirm/123", nil
}

func (f *fakeBillingAPI) GetRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*shopify.RecurringCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chargeByID[chargeID]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, &shopify.RemoteAPIError{Status: 404, Body: "not found"}
}

func (f *fakeBillingAPI) ActivateRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*shopify.RecurringCharge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chargeByID[chargeID]
	if !ok {
		return nil, &shopify.RemoteAPIError{Status: 404, Body: "not found"}
	}
	c.Status = shopify.ChargeStatusActive
	f.activated = append(f.activated, chargeID)
	cp := *c
	return &cp, nil
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		ClientID:       "client-1",
		SharedSecret:   "secret",
		APIVersion:     "2024-07",
		RedirectURI:    "https://app.example.com/install_redirect_uri",
		AppBaseURL:     "https://app.example.com",
		PlatformAppURL: "https://platform.example.com/apps/shopbridge",
	}
}

func newTestService(api BillingAPI, plans *fakePlanRepo, subs *fakeSubRepo) *Service {
	repos := &repository.Repositories{Plan: plans, Subscription: subs}
	return NewService(testConfig(), repos, api, shopauth.NewVerifier("secret", "client-1"), shoplock.New())
}

func testShop() *models.Shop {
	return &models.Shop{ID: 7, Domain: "foo.example.com", Installed: true, AccessToken: "tok"}
}

func TestChangePlanFreeCancelsBillableCharges(t *testing.T) {
	api := &fakeBillingAPI{
		charges: []shopify.RecurringCharge{
			{ID: "c1", Status: shopify.ChargeStatusActive},
			{ID: "c2", Status: shopify.ChargeStatusDeclined},
			{ID: "c3", Status: shopify.ChargeStatusFrozen},
		},
	}
	plans := newFakePlanRepo(
		&models.Plan{Name: "free", PriceCents: 0, Active: true},
		&models.Plan{Name: "pro", PriceCents: 2900, Active: true},
	)
	subs := &fakeSubRepo{}
	svc := newTestService(api, plans, subs)
	shop := testShop()

	res, err := svc.ChangePlan(context.Background(), shop, "free")
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	if !res.Activated {
		t.Fatal("free plan change should activate immediately")
	}
	if len(api.cancelled) != 2 {
		t.Fatalf("expected 2 cancellations (billable only), got %v", api.cancelled)
	}
	if n := len(subs.active(shop.ID)); n != 1 {
		t.Fatalf("expected 1 active subscription, got %d", n)
	}
}

func TestChangePlanFreeAbortsOnCancelFailure(t *testing.T) {
	api := &fakeBillingAPI{
		charges: []shopify.RecurringCharge{
			{ID: "c1", Status: shopify.ChargeStatusActive},
			{ID: "c2", Status: shopify.ChargeStatusAccepted},
		},
		cancelErr: map[string]error{"c2": &shopify.RemoteAPIError{Status: 500, Body: "boom"}},
	}
	plans := newFakePlanRepo(
		&models.Plan{Name: "free", PriceCents: 0, Active: true},
		&models.Plan{Name: "pro", PriceCents: 2900, Active: true},
	)
	subs := &fakeSubRepo{}
	shop := testShop()
	subs.ReplaceActive(shop.ID, 2, time.Now().Add(-time.Hour))
	before, _ := subs.GetActiveByShop(shop.ID)

	svc := newTestService(api, plans, subs)
	if _, err := svc.ChangePlan(context.Background(), shop, "free"); err == nil {
		t.Fatal("expected cancellation failure to abort the downgrade")
	}

	after, err := subs.GetActiveByShop(shop.ID)
	if err != nil {
		t.Fatalf("active subscription vanished: %v", err)
	}
	if after.ID != before.ID || after.PlanID != before.PlanID {
		t.Fatalf("local subscription changed despite remote failure: before=%+v after=%+v", before, after)
	}
}

func TestChangePlanPaidReturnsConfirmationWithoutLocalChange(t *testing.T) {
	api := &fakeBillingAPI{}
	plans := newFakePlanRepo(
		&models.Plan{Name: "free", PriceCents: 0, Active: true},
		&models.Plan{Name: "pro", PriceCents: 2900, Active: true},
	)
	subs := &fakeSubRepo{}
	svc := newTestService(api, plans, subs)
	shop := testShop()

	res, err := svc.ChangePlan(context.Background(), shop, "pro")
	if err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	if res.Activated {
		t.Fatal("paid plan change must not activate locally")
	}
	if res.ConfirmationURL == "" {
		t.Fatal("expected a confirmation URL")
	}
	if n := len(subs.active(shop.ID)); n != 0 {
		t.Fatalf("paid path mutated local state: %d active rows", n)
	}
}

func TestChangePlanUnknownPlan(t *testing.T) {
	svc := newTestService(&fakeBillingAPI{}, newFakePlanRepo(), &fakeSubRepo{})
	if _, err := svc.ChangePlan(context.Background(), testShop(), "nope"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestActivateChargeRejectsInactiveCharge(t *testing.T) {
	api := &fakeBillingAPI{
		chargeByID: map[string]*shopify.RecurringCharge{
			"55": {ID: "55", Status: shopify.ChargeStatusDeclined},
		},
	}
	plans := newFakePlanRepo(&models.Plan{Name: "pro", PriceCents: 2900, Active: true})
	subs := &fakeSubRepo{}
	svc := newTestService(api, plans, subs)
	shop := testShop()

	if _, err := svc.ActivateCharge(context.Background(), shop, "55", "pro"); !errors.Is(err, ErrChargeNotActive) {
		t.Fatalf("expected ErrChargeNotActive, got %v", err)
	}
	if n := len(subs.active(shop.ID)); n != 0 {
		t.Fatalf("declined charge mutated local state: %d active rows", n)
	}
}

func TestActivateChargeActivatesAcceptedCharge(t *testing.T) {
	api := &fakeBillingAPI{
		chargeByID: map[string]*shopify.RecurringCharge{
			"55": {ID: "55", Status: shopify.ChargeStatusAccepted},
		},
	}
	plans := newFakePlanRepo(&models.Plan{Name: "pro", PriceCents: 2900, Active: true})
	subs := &fakeSubRepo{}
	svc := newTestService(api, plans, subs)
	shop := testShop()

	sub, err := svc.ActivateCharge(context.Background(), shop, "55", "pro")
	if err != nil {
		t.Fatalf("ActivateCharge: %v", err)
	}
	if !sub.Active {
		t.Fatal("expected an active subscription")
	}
	if len(api.activated) != 1 {
		t.Fatalf("expected one remote activation, got %v", api.activated)
	}
}

func TestActivateChargeConcurrentConfirmations(t *testing.T) {
	api := &fakeBillingAPI{
		chargeByID: map[string]*shopify.RecurringCharge{
			"55": {ID: "55", Status: shopify.ChargeStatusActive},
		},
	}
	plans := newFakePlanRepo(&models.Plan{Name: "pro", PriceCents: 2900, Active: true})
	subs := &fakeSubRepo{}
	svc := newTestService(api, plans, subs)
	shop := testShop()

	const confirmations = 8
	var wg sync.WaitGroup
	for i := 0; i < confirmations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.ActivateCharge(context.Background(), shop, "55", "pro"); err != nil {
				t.Errorf("ActivateCharge: %v", err)
			}
		}()
	}
	wg.Wait()

	active := subs.active(shop.ID)
	if len(active) != 1 {
		t.Fatalf("expected exactly one active subscription, got %d", len(active))
	}
}

func TestGetBillingPlanDefaultsToFree(t *testing.T) {
	plans := newFakePlanRepo(
		&models.Plan{Name: "free", PriceCents: 0, Active: true},
		&models.Plan{Name: "pro", PriceCents: 2900, Active: true},
	)
	subs := &fakeSubRepo{}
	svc := newTestService(&fakeBillingAPI{}, plans, subs)
	shop := testShop()

	plan, sub, err := svc.GetBillingPlan(context.Background(), shop)
	if err != nil {
		t.Fatalf("GetBillingPlan: %v", err)
	}
	if plan.Name != "free" || sub != nil {
		t.Fatalf("expected free plan and no subscription, got plan=%s sub=%v", plan.Name, sub)
	}

	subs.ReplaceActive(shop.ID, 2, time.Now())
	plan, sub, err = svc.GetBillingPlan(context.Background(), shop)
	if err != nil {
		t.Fatalf("GetBillingPlan: %v", err)
	}
	if plan.Name != "pro" || sub == nil {
		t.Fatalf("expected pro plan with subscription, got plan=%s", plan.Name)
	}
}
