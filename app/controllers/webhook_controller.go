package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/constants"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/webhookqueue"
)

// WebhookController receives platform webhooks and queues them
type WebhookController struct {
	verifier *shopauth.Verifier
	queue    repository.WebhookQueueRepository
}

var webhookController *WebhookController

// InitializeWebhookController wires the webhook controller
func InitializeWebhookController(verifier *shopauth.Verifier, queue repository.WebhookQueueRepository) {
	webhookController = &WebhookController{verifier: verifier, queue: queue}
}

// GetWebhookController returns the initialized webhook controller
func GetWebhookController() *WebhookController {
	if webhookController == nil {
		panic("Webhook controller not initialized. Call InitializeWebhookController first.")
	}
	return webhookController
}

// HandleWebhook verifies the body signature and queues the event.
// Verification runs on the raw bytes before anything is parsed. The
// platform always gets a 200 so it never redelivers, even when the
// signature fails; an unverified event is simply never queued, and a
// verified one is owned by the queue from that point on.
func (wc *WebhookController) HandleWebhook(c *fiber.Ctx) error {
	body := append([]byte(nil), c.BodyRaw()...)
	shopDomain := c.Get(constants.HeaderShopDomain)
	signature := c.Get(constants.HeaderHmacSha256)
	event := c.Params("event")

	if err := wc.verifier.VerifyWebhook(body, signature); err != nil {
		log.Warnf("[Webhook] dropped unverified %s delivery for %s: %v", event, shopDomain, err)
		return c.SendStatus(fiber.StatusOK)
	}

	if err := webhookqueue.Enqueue(wc.queue, event, shopDomain, body); err != nil {
		log.Errorf("[Webhook] enqueue failed for %s event %s: %v", shopDomain, event, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
