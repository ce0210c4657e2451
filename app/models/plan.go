package models

import "time"

const (
	PlanTermMonthly = "monthly"

	// PlanNameFree is seeded on startup and must always exist.
	PlanNameFree = "free"
)

// Plan is a billable tier. Rows referenced by live subscriptions stay
// immutable apart from operator edits to price and the active flag.
type Plan struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	PriceCents int64     `gorm:"not null;default:0" json:"price_cents"`
	Term       string    `gorm:"type:varchar(20);not null;default:'monthly'" json:"term"`
	TrialDays  int       `gorm:"not null;default:0" json:"trial_days"`
	Test       bool      `gorm:"not null;default:false" json:"test"`
	Active     bool      `gorm:"not null;default:true;index" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsFree reports whether the plan needs no merchant-approved charge.
func (p *Plan) IsFree() bool {
	return p.PriceCents == 0
}
