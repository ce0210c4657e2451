package repository

import (
	"time"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// webhookQueueRepository implements the WebhookQueueRepository interface
type webhookQueueRepository struct {
	db *gorm.DB
}

// NewWebhookQueueRepository creates a new webhook queue repository instance
func NewWebhookQueueRepository(db *gorm.DB) WebhookQueueRepository {
	return &webhookQueueRepository{db: db}
}

func (r *webhookQueueRepository) Enqueue(item *models.WebhookQueueItem) error {
	if item.UUID == "" {
		item.UUID = uuid.New().String()
	}
	if item.Type == "" {
		item.Type = models.QueueItemTypeShopWebhook
	}
	return r.db.Create(item).Error
}

func (r *webhookQueueRepository) ListUnlocked(itemType string, limit int) ([]models.WebhookQueueItem, error) {
	var items []models.WebhookQueueItem
	q := r.db.Where("type = ? AND locked = ?", itemType, false).Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&items).Error
	return items, err
}

// Claim is the compare-and-set that guarantees single ownership: the
// update only matches while the row is still unlocked, so of any number of
// concurrent claimers exactly one sees RowsAffected == 1.
func (r *webhookQueueRepository) Claim(id uint) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.WebhookQueueItem{}).
		Where("id = ? AND locked = ?", id, false).
		Updates(map[string]interface{}{
			"locked":    true,
			"locked_at": now,
			"attempts":  gorm.Expr("attempts + 1"),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (r *webhookQueueRepository) Unlock(id uint) error {
	return r.db.Model(&models.WebhookQueueItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"locked":    false,
			"locked_at": nil,
		}).Error
}

func (r *webhookQueueRepository) Delete(id uint) error {
	return r.db.Delete(&models.WebhookQueueItem{}, id).Error
}

func (r *webhookQueueRepository) CountPending(itemType string) (int64, error) {
	var count int64
	err := r.db.Model(&models.WebhookQueueItem{}).
		Where("type = ?", itemType).
		Count(&count).Error
	return count, err
}
