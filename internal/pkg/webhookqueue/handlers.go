package webhookqueue

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/repository"
)

// Uninstaller tears down a shop when the platform reports the app was
// removed.
type Uninstaller interface {
	Uninstall(ctx context.Context, shopDomain string) error
}

// DefaultHandlers builds the handler set for every platform event.
func DefaultHandlers(uninstaller Uninstaller, shops repository.ShopRepository) map[string]Handler {
	return map[string]Handler{
		EventAppUninstalled:      handleAppUninstalled(uninstaller),
		EventShopUpdate:          handleShopUpdate(shops),
		EventRedactShopData:      handleRedactShopData(shops),
		EventRedactCustomerData:  handleCustomerDataEvent(EventRedactCustomerData),
		EventRequestCustomerData: handleCustomerDataEvent(EventRequestCustomerData),
	}
}

func handleAppUninstalled(uninstaller Uninstaller) Handler {
	return func(ctx context.Context, payload *EventPayload) error {
		return uninstaller.Uninstall(ctx, payload.ShopDomain)
	}
}

// shopUpdateBody carries the profile fields the platform sends with a
// shop_update event.
type shopUpdateBody struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	PlanDisplayName string `json:"plan_display_name"`
}

func handleShopUpdate(shops repository.ShopRepository) Handler {
	return func(ctx context.Context, payload *EventPayload) error {
		var body shopUpdateBody
		if err := json.Unmarshal(payload.Body, &body); err != nil {
			log.Warnf("[WebhookQueue] shop_update for %s has no usable body: %v", payload.ShopDomain, err)
			return nil
		}

		shop, err := shops.GetByDomain(payload.ShopDomain)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The platform may deliver updates for shops we never
				// finished installing. Nothing to refresh.
				return nil
			}
			return err
		}

		shop.Name = body.Name
		shop.Email = body.Email
		shop.PlanDisplayName = body.PlanDisplayName
		return shops.Update(shop)
	}
}

func handleRedactShopData(shops repository.ShopRepository) Handler {
	return func(ctx context.Context, payload *EventPayload) error {
		shop, err := shops.GetByDomain(payload.ShopDomain)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		shop.Name = ""
		shop.Email = ""
		shop.PlanDisplayName = ""
		shop.AccessToken = ""
		shop.SettingsJSON = "{}"
		shop.Deleted = true
		if err := shop.SetWebhooks(nil); err != nil {
			return err
		}
		if err := shops.Update(shop); err != nil {
			return err
		}

		log.Infof("[WebhookQueue] Redacted stored data for %s", payload.ShopDomain)
		return nil
	}
}

// handleCustomerDataEvent acknowledges the customer privacy events. The
// app stores no customer records, so there is nothing to redact or
// export; the events are logged for the compliance trail.
func handleCustomerDataEvent(event string) Handler {
	return func(ctx context.Context, payload *EventPayload) error {
		log.Infof("[WebhookQueue] %s acknowledged for %s (no customer data stored)", event, payload.ShopDomain)
		return nil
	}
}
