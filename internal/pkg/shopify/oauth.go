package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthorizeURL builds the merchant-facing OAuth consent URL for an install
// attempt. The nonce travels as the state parameter and is echoed back on
// the callback.
func (c *Client) AuthorizeURL(shopDomain, scopes, redirectURI, nonce string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" {
		return "", errors.New("platform client id is not configured")
	}
	if strings.TrimSpace(redirectURI) == "" {
		return "", errors.New("redirect uri is not configured")
	}

	u := url.URL{
		Scheme: "https",
		Host:   shopDomain,
		Path:   "/admin/oauth/authorize",
	}
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("scope", scopes)
	q.Set("redirect_uri", redirectURI)
	q.Set("state", nonce)
	q.Add("grant_options[]", "offline")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode swaps an OAuth callback code for a permanent access token.
func (c *Client) ExchangeCode(ctx context.Context, shopDomain, code string) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", errors.New("platform credentials are not configured")
	}
	if strings.TrimSpace(code) == "" {
		return "", errors.New("oauth code is required")
	}

	payload := map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"code":          strings.TrimSpace(code),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	tokenURL := fmt.Sprintf("https://%s/admin/oauth/access_token", shopDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(string(data)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteAPIError{Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New("token exchange returned empty access_token")
	}
	return out.AccessToken, nil
}
