package models

import "time"

// Subscription is a time-boxed entitlement linking a shop to a plan.
// At most one row per shop may have Active=true at any instant.
type Subscription struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	ShopID    uint       `gorm:"not null;index:idx_subscriptions_shop_active,priority:1" json:"shop_id"`
	PlanID    uint       `gorm:"not null;index" json:"plan_id"`
	StartAt   time.Time  `gorm:"type:timestamp;not null" json:"start_at"`
	EndAt     *time.Time `gorm:"type:timestamp;default:null" json:"end_at,omitempty"`
	Active    bool       `gorm:"not null;default:false;index:idx_subscriptions_shop_active,priority:2" json:"active"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Plan Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}
