package models

import "time"

const (
	// QueueItemTypeShopWebhook tags inbound platform events.
	QueueItemTypeShopWebhook = "shop_webhook"
)

// WebhookQueueItem is one pending inbound platform event. A locked item is
// being processed and must not be claimed by a second worker; it is removed
// only after its handler succeeds.
type WebhookQueueItem struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UUID       string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"uuid"`
	Type       string     `gorm:"type:varchar(50);not null;index:idx_queue_type_locked,priority:1" json:"type"`
	Event      string     `gorm:"type:varchar(100);not null" json:"event"`
	ShopDomain string     `gorm:"type:varchar(191);not null;index" json:"shop_domain"`
	Payload    string     `gorm:"type:longtext" json:"payload"`
	Locked     bool       `gorm:"not null;default:false;index:idx_queue_type_locked,priority:2" json:"locked"`
	LockedAt   *time.Time `gorm:"type:timestamp;default:null" json:"locked_at,omitempty"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
