package models

import (
	"encoding/json"
	"time"
)

// Platform plans whose shops are billed with test charges.
const (
	ShopPlanDevelopment      = "Development"
	ShopPlanDeveloperPreview = "Developer Preview"
	ShopPlanStaff            = "staff"
)

// Shop is one installed (or installing) tenant, keyed by its platform domain.
type Shop struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Domain          string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"domain"`
	Installed       bool      `gorm:"not null;default:false;index" json:"installed"`
	AccessToken     string    `gorm:"type:varchar(191)" json:"-"`
	Nonce           string    `gorm:"type:varchar(64)" json:"-"`
	Name            string    `gorm:"type:varchar(191)" json:"name"`
	Email           string    `gorm:"type:varchar(191)" json:"email"`
	PlanDisplayName string    `gorm:"type:varchar(100)" json:"plan_display_name"`
	WebhooksJSON    string    `gorm:"type:text" json:"-"`
	SettingsJSON    string    `gorm:"type:text" json:"-"`
	Deleted         bool      `gorm:"not null;default:false" json:"deleted"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RegisteredWebhook is one webhook subscription the shop currently has on
// the platform side, stored as part of the shop row.
type RegisteredWebhook struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
}

// Webhooks decodes the stored webhook registrations. An empty or invalid
// column yields an empty list.
func (s *Shop) Webhooks() []RegisteredWebhook {
	if s.WebhooksJSON == "" {
		return nil
	}
	var hooks []RegisteredWebhook
	if err := json.Unmarshal([]byte(s.WebhooksJSON), &hooks); err != nil {
		return nil
	}
	return hooks
}

// SetWebhooks replaces the stored webhook registrations.
func (s *Shop) SetWebhooks(hooks []RegisteredWebhook) error {
	if len(hooks) == 0 {
		s.WebhooksJSON = ""
		return nil
	}
	data, err := json.Marshal(hooks)
	if err != nil {
		return err
	}
	s.WebhooksJSON = string(data)
	return nil
}

// UsesTestCharges reports whether the shop's platform plan mandates test
// billing charges.
func (s *Shop) UsesTestCharges() bool {
	switch s.PlanDisplayName {
	case ShopPlanDevelopment, ShopPlanDeveloperPreview, ShopPlanStaff:
		return true
	}
	return false
}
