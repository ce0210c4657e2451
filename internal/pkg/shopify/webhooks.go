package shopify

import (
	"context"
	"fmt"
	"net/http"
)

// WebhookSubscription is one webhook registration on the platform side.
type WebhookSubscription struct {
	ID      int64  `json:"id"`
	Topic   string `json:"topic"`
	Address string `json:"address"`
	Format  string `json:"format"`
}

// CreateWebhookSubscription registers a webhook for the shop.
func (c *Client) CreateWebhookSubscription(ctx context.Context, shopDomain, accessToken, topic, address string) (*WebhookSubscription, error) {
	payload := map[string]interface{}{
		"webhook": map[string]string{
			"topic":   topic,
			"address": address,
			"format":  "json",
		},
	}

	var out struct {
		Webhook WebhookSubscription `json:"webhook"`
	}
	if _, err := c.doJSON(ctx, http.MethodPost, c.restURL(shopDomain, "webhooks.json"), accessToken, payload, &out); err != nil {
		return nil, err
	}
	return &out.Webhook, nil
}

// ListWebhookSubscriptions returns every webhook registration, following
// cursor pagination until the platform reports no further page.
func (c *Client) ListWebhookSubscriptions(ctx context.Context, shopDomain, accessToken string) ([]WebhookSubscription, error) {
	var all []WebhookSubscription

	pager := c.newPager(shopDomain, accessToken, c.restURL(shopDomain, "webhooks.json?limit=50"))
	for {
		var page struct {
			Webhooks []WebhookSubscription `json:"webhooks"`
		}
		ok, err := pager.Next(ctx, &page)
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, page.Webhooks...)
	}
}

// DeleteWebhookSubscription removes one webhook registration.
func (c *Client) DeleteWebhookSubscription(ctx context.Context, shopDomain, accessToken string, id int64) error {
	rawURL := c.restURL(shopDomain, fmt.Sprintf("webhooks/%d.json", id))
	_, err := c.doJSON(ctx, http.MethodDelete, rawURL, accessToken, nil, nil)
	return err
}
