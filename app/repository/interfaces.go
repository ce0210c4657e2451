package repository

import (
	"time"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"gorm.io/gorm"
)

// ShopRepository defines the database operations for tenant shops
type ShopRepository interface {
	Create(shop *models.Shop) error
	GetByID(id uint) (*models.Shop, error)
	GetByDomain(domain string) (*models.Shop, error)
	GetOrCreateByDomain(domain string) (*models.Shop, error)
	Update(shop *models.Shop) error
	List(offset, limit int) ([]models.Shop, error)
	Count() (int64, error)
}

// PlanRepository defines the database operations for billing plans
type PlanRepository interface {
	Create(plan *models.Plan) error
	GetByID(id uint) (*models.Plan, error)
	GetByName(name string) (*models.Plan, error)
	ListActive() ([]models.Plan, error)
	Update(plan *models.Plan) error
	EnsureFreePlan() error
}

// SubscriptionRepository defines the database operations for subscriptions
type SubscriptionRepository interface {
	GetActiveByShop(shopID uint) (*models.Subscription, error)
	ListByShop(shopID uint) ([]models.Subscription, error)
	// ReplaceActive ends the shop's active subscription (end=now,
	// active=false) and starts a new open-ended one for the plan, in a
	// single transaction.
	ReplaceActive(shopID, planID uint, now time.Time) (*models.Subscription, error)
	EndActive(shopID uint, now time.Time) error
}

// WebhookQueueRepository defines the queue operations for inbound events
type WebhookQueueRepository interface {
	Enqueue(item *models.WebhookQueueItem) error
	ListUnlocked(itemType string, limit int) ([]models.WebhookQueueItem, error)
	// Claim flips the lock flag iff the item is currently unlocked and
	// reports whether this caller won the claim.
	Claim(id uint) (bool, error)
	Unlock(id uint) error
	Delete(id uint) error
	CountPending(itemType string) (int64, error)
}

// InstalledShopsRepository is the shared cache of installed shop domains
type InstalledShopsRepository interface {
	Add(domain string) error
	Remove(domain string) error
	Contains(domain string) (bool, error)
	All() ([]string, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Shop           ShopRepository
	Plan           PlanRepository
	Subscription   SubscriptionRepository
	WebhookQueue   WebhookQueueRepository
	InstalledShops InstalledShopsRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Shop:           NewShopRepository(db),
		Plan:           NewPlanRepository(db),
		Subscription:   NewSubscriptionRepository(db),
		WebhookQueue:   NewWebhookQueueRepository(db),
		InstalledShops: NewInstalledShopsRepository(),
	}
}
