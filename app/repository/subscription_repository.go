package repository

import (
	"time"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"gorm.io/gorm"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetActiveByShop(shopID uint) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Preload("Plan").
		Where("shop_id = ? AND active = ?", shopID, true).
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByShop(shopID uint) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Plan").
		Where("shop_id = ?", shopID).
		Order("start_at desc").
		Find(&subs).Error
	return subs, err
}

// ReplaceActive runs the end-then-start sequence inside one transaction so
// a reader never observes two active rows for the shop.
func (r *subscriptionRepository) ReplaceActive(shopID, planID uint, now time.Time) (*models.Subscription, error) {
	sub := &models.Subscription{
		ShopID:  shopID,
		PlanID:  planID,
		StartAt: now,
		Active:  true,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := endActiveTx(tx, shopID, now); err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *subscriptionRepository) EndActive(shopID uint, now time.Time) error {
	return endActiveTx(r.db, shopID, now)
}

func endActiveTx(tx *gorm.DB, shopID uint, now time.Time) error {
	return tx.Model(&models.Subscription{}).
		Where("shop_id = ? AND active = ?", shopID, true).
		Updates(map[string]interface{}{
			"active": false,
			"end_at": now,
		}).Error
}
