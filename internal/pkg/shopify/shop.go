package shopify

import (
	"context"
	"net/http"
)

// ShopProfile is the subset of the platform's shop resource the app keeps.
type ShopProfile struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	PlanDisplayName string `json:"plan_display_name"`
}

// GetShopProfile fetches the shop's profile fields.
func (c *Client) GetShopProfile(ctx context.Context, shopDomain, accessToken string) (*ShopProfile, error) {
	var out struct {
		Shop ShopProfile `json:"shop"`
	}
	if _, err := c.doJSON(ctx, http.MethodGet, c.restURL(shopDomain, "shop.json"), accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &out.Shop, nil
}

// GetAccessScopes returns the scope handles currently granted to the app
// installation.
func (c *Client) GetAccessScopes(ctx context.Context, shopDomain, accessToken string) ([]string, error) {
	const query = `query {
  currentAppInstallation {
    accessScopes { handle }
  }
}`

	var data struct {
		CurrentAppInstallation struct {
			AccessScopes []struct {
				Handle string `json:"handle"`
			} `json:"accessScopes"`
		} `json:"currentAppInstallation"`
	}
	if err := c.graphql(ctx, shopDomain, accessToken, query, nil, &data); err != nil {
		return nil, err
	}

	handles := make([]string, 0, len(data.CurrentAppInstallation.AccessScopes))
	for _, s := range data.CurrentAppInstallation.AccessScopes {
		handles = append(handles, s.Handle)
	}
	return handles, nil
}
