package controllers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/constants"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
)

const webhookTestSecret = "webhook-test-secret"

// fakeWebhookQueue records enqueued items and can be scripted to fail.
type fakeWebhookQueue struct {
	mu         sync.Mutex
	items      []models.WebhookQueueItem
	enqueueErr error
}

func (f *fakeWebhookQueue) Enqueue(item *models.WebhookQueueItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.items = append(f.items, *item)
	return nil
}

func (f *fakeWebhookQueue) ListUnlocked(itemType string, limit int) ([]models.WebhookQueueItem, error) {
	return nil, nil
}
func (f *fakeWebhookQueue) Claim(id uint) (bool, error) { return false, nil }
func (f *fakeWebhookQueue) Unlock(id uint) error        { return nil }
func (f *fakeWebhookQueue) Delete(id uint) error        { return nil }

func (f *fakeWebhookQueue) CountPending(string) (int64, error) {
	return int64(len(f.items)), nil
}

func newWebhookTestApp(queue *fakeWebhookQueue) *fiber.App {
	wc := &WebhookController{
		verifier: shopauth.NewVerifier(webhookTestSecret, "client-1"),
		queue:    queue,
	}
	app := fiber.New()
	app.Post(constants.WebhookRoute, wc.HandleWebhook)
	return app
}

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(event string, body []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/"+event, bytes.NewReader(body))
	req.Header.Set(constants.HeaderShopDomain, "foo.example.com")
	req.Header.Set(constants.HeaderHmacSha256, signature)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleWebhookEnqueuesVerifiedEvent(t *testing.T) {
	queue := &fakeWebhookQueue{}
	app := newWebhookTestApp(queue)

	body := []byte(`{"name":"Foo Shop"}`)
	resp, err := app.Test(newWebhookRequest("shop_update", body, signWebhookBody(body)), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, queue.items, 1)
	item := queue.items[0]
	assert.Equal(t, "shop_update", item.Event)
	assert.Equal(t, "foo.example.com", item.ShopDomain)
	assert.Contains(t, item.Payload, "Foo Shop")
}

func TestHandleWebhookAcksBadSignatureWithoutEnqueue(t *testing.T) {
	queue := &fakeWebhookQueue{}
	app := newWebhookTestApp(queue)

	body := []byte(`{"name":"Foo Shop"}`)
	resp, err := app.Test(newWebhookRequest("shop_update", body, signWebhookBody([]byte("other body"))), -1)
	require.NoError(t, err)
	// A non-200 would make the platform redeliver the tampered event
	// forever; it is acknowledged and dropped instead.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, queue.items)
}

func TestHandleWebhookAcksMissingSignatureWithoutEnqueue(t *testing.T) {
	queue := &fakeWebhookQueue{}
	app := newWebhookTestApp(queue)

	resp, err := app.Test(newWebhookRequest("app_uninstalled", []byte(`{}`), ""), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, queue.items)
}

func TestHandleWebhookAlwaysAcksAfterVerification(t *testing.T) {
	queue := &fakeWebhookQueue{enqueueErr: errors.New("queue down")}
	app := newWebhookTestApp(queue)

	body := []byte(`{}`)
	resp, err := app.Test(newWebhookRequest("app_uninstalled", body, signWebhookBody(body)), -1)
	require.NoError(t, err)
	// The platform must not redeliver once the signature passed.
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
