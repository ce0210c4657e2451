package webhookqueue

import (
	"encoding/json"
	"time"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
)

// Event names delivered by the platform.
const (
	EventAppUninstalled      = "app_uninstalled"
	EventShopUpdate          = "shop_update"
	EventRedactShopData      = "redact_shop_data"
	EventRedactCustomerData  = "redact_customer_data"
	EventRequestCustomerData = "request_customer_data"
)

// RequiredEvents lists every event the processor must have a handler
// for. Start refuses to run with an incomplete handler set so a missing
// registration surfaces at boot, not when the first event arrives.
var RequiredEvents = []string{
	EventAppUninstalled,
	EventShopUpdate,
	EventRedactShopData,
	EventRedactCustomerData,
	EventRequestCustomerData,
}

// EventPayload is the persisted form of one inbound webhook. The raw
// body is kept verbatim so handlers decode only the fields they need.
type EventPayload struct {
	Event      string          `json:"event"`
	ShopDomain string          `json:"shop_domain"`
	ReceivedAt time.Time       `json:"received_at"`
	Body       json.RawMessage `json:"body,omitempty"`
}

// Encode serializes the payload for the queue table.
func (p EventPayload) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// DecodePayload parses a queue item's payload column.
func DecodePayload(raw string) (*EventPayload, error) {
	var payload EventPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Enqueue persists a verified webhook for asynchronous processing.
func Enqueue(queue repository.WebhookQueueRepository, event, shopDomain string, body []byte) error {
	payload := EventPayload{
		Event:      event,
		ShopDomain: shopDomain,
		ReceivedAt: time.Now().UTC(),
		Body:       append([]byte(nil), body...),
	}
	raw, err := payload.Encode()
	if err != nil {
		return err
	}

	return queue.Enqueue(&models.WebhookQueueItem{
		Type:       models.QueueItemTypeShopWebhook,
		Event:      event,
		ShopDomain: shopDomain,
		Payload:    raw,
	})
}
