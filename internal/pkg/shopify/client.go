package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
)

// Client talks to the commerce platform's admin API on behalf of a shop.
// All calls take the shop domain and its access token explicitly; the
// client itself holds only app-level credentials.
type Client struct {
	ClientID     string
	ClientSecret string
	APIVersion   string

	HTTPClient *http.Client
}

// RemoteAPIError is any non-2xx answer or application-level error from the
// platform. Local state is never mutated on this error; callers may retry.
type RemoteAPIError struct {
	Status int
	Body   string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("platform api failure: status=%d body=%s", e.Status, e.Body)
}

// NewClientFromEnv builds a client from the loaded app configuration.
func NewClientFromEnv() *Client {
	cfg := config.Get()
	return &Client{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.SharedSecret,
		APIVersion:   cfg.APIVersion,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) restURL(shopDomain, path string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", shopDomain, c.APIVersion, strings.TrimLeft(path, "/"))
}

func (c *Client) graphqlURL(shopDomain string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, c.APIVersion)
}

// doJSON performs an authenticated request and decodes the JSON answer
// into out (when non-nil). It returns the response for header inspection.
func (c *Client) doJSON(ctx context.Context, method, rawURL, accessToken string, payload, out interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if accessToken != "" {
		req.Header.Set("X-Shopbridge-Access-Token", accessToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, &RemoteAPIError{Status: resp.StatusCode, Body: string(data)}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, err
		}
	}
	return resp, nil
}
