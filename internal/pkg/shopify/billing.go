package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Charge statuses the platform reports for recurring application charges.
const (
	ChargeStatusPending  = "pending"
	ChargeStatusAccepted = "accepted"
	ChargeStatusActive   = "active"
	ChargeStatusFrozen   = "frozen"
	ChargeStatusDeclined = "declined"
	ChargeStatusExpired  = "expired"
)

// RecurringCharge is the platform's view of a subscription charge.
type RecurringCharge struct {
	ID     string
	Name   string
	Status string
	Test   bool
}

// IsBillable reports whether the charge currently bills (or will bill) the
// merchant and therefore must be cancelled on a downgrade to free.
func (rc RecurringCharge) IsBillable() bool {
	switch strings.ToLower(rc.Status) {
	case ChargeStatusAccepted, ChargeStatusActive, ChargeStatusFrozen:
		return true
	}
	return false
}

// ListRecurringCharges returns the app's subscription charges for the shop.
func (c *Client) ListRecurringCharges(ctx context.Context, shopDomain, accessToken string) ([]RecurringCharge, error) {
	const query = `query {
  currentAppInstallation {
    activeSubscriptions { id name status test }
  }
}`

	var data struct {
		CurrentAppInstallation struct {
			ActiveSubscriptions []struct {
				ID     string `json:"id"`
				Name   string `json:"name"`
				Status string `json:"status"`
				Test   bool   `json:"test"`
			} `json:"activeSubscriptions"`
		} `json:"currentAppInstallation"`
	}
	if err := c.graphql(ctx, shopDomain, accessToken, query, nil, &data); err != nil {
		return nil, err
	}

	charges := make([]RecurringCharge, 0, len(data.CurrentAppInstallation.ActiveSubscriptions))
	for _, s := range data.CurrentAppInstallation.ActiveSubscriptions {
		charges = append(charges, RecurringCharge{
			ID:     s.ID,
			Name:   s.Name,
			Status: strings.ToLower(s.Status),
			Test:   s.Test,
		})
	}
	return charges, nil
}

// CancelRecurringCharge cancels one subscription charge remotely.
func (c *Client) CancelRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) error {
	const mutation = `mutation appSubscriptionCancel($id: ID!) {
  appSubscriptionCancel(id: $id) {
    appSubscription { id status }
    userErrors { field message }
  }
}`

	var data struct {
		AppSubscriptionCancel struct {
			UserErrors []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"appSubscriptionCancel"`
	}
	if err := c.graphql(ctx, shopDomain, accessToken, mutation, map[string]interface{}{"id": chargeID}, &data); err != nil {
		return err
	}
	if errs := data.AppSubscriptionCancel.UserErrors; len(errs) > 0 {
		return &RemoteAPIError{Status: http.StatusOK, Body: "appSubscriptionCancel: " + errs[0].Message}
	}
	return nil
}

// CreateRecurringChargeInput describes the pending charge to create.
type CreateRecurringChargeInput struct {
	Name       string
	PriceCents int64
	TrialDays  int
	Test       bool
	ReturnURL  string
}

// CreateRecurringCharge opens a pending subscription charge and returns
// the merchant-facing confirmation URL. No local state is touched here;
// the merchant approves out-of-band and the platform redirects back.
func (c *Client) CreateRecurringCharge(ctx context.Context, shopDomain, accessToken string, in CreateRecurringChargeInput) (string, error) {
	const mutation = `mutation appSubscriptionCreate($name: String!, $returnUrl: URL!, $test: Boolean, $trialDays: Int, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, test: $test, trialDays: $trialDays, lineItems: $lineItems) {
    confirmationUrl
    appSubscription { id }
    userErrors { field message }
  }
}`

	variables := map[string]interface{}{
		"name":      in.Name,
		"returnUrl": in.ReturnURL,
		"test":      in.Test,
		"trialDays": in.TrialDays,
		"lineItems": []map[string]interface{}{
			{
				"plan": map[string]interface{}{
					"appRecurringPricingDetails": map[string]interface{}{
						"price": map[string]interface{}{
							"amount":       fmt.Sprintf("%d.%02d", in.PriceCents/100, in.PriceCents%100),
							"currencyCode": "USD",
						},
						"interval": "EVERY_30_DAYS",
					},
				},
			},
		},
	}

	var data struct {
		AppSubscriptionCreate struct {
			ConfirmationURL string `json:"confirmationUrl"`
			UserErrors      []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"appSubscriptionCreate"`
	}
	if err := c.graphql(ctx, shopDomain, accessToken, mutation, variables, &data); err != nil {
		return "", err
	}
	if errs := data.AppSubscriptionCreate.UserErrors; len(errs) > 0 {
		return "", &RemoteAPIError{Status: http.StatusOK, Body: "appSubscriptionCreate: " + errs[0].Message}
	}
	if data.AppSubscriptionCreate.ConfirmationURL == "" {
		return "", &RemoteAPIError{Status: http.StatusOK, Body: "appSubscriptionCreate returned no confirmation url"}
	}
	return data.AppSubscriptionCreate.ConfirmationURL, nil
}

// GetRecurringCharge re-fetches one charge by its REST id. Used by charge
// activation to confirm status before local state moves.
func (c *Client) GetRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*RecurringCharge, error) {
	var out struct {
		RecurringApplicationCharge struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Status string `json:"status"`
			Test   bool   `json:"test"`
		} `json:"recurring_application_charge"`
	}

	rawURL := c.restURL(shopDomain, fmt.Sprintf("recurring_application_charges/%s.json", chargeID))
	if _, err := c.doJSON(ctx, http.MethodGet, rawURL, accessToken, nil, &out); err != nil {
		return nil, err
	}
	return &RecurringCharge{
		ID:     fmt.Sprintf("%d", out.RecurringApplicationCharge.ID),
		Name:   out.RecurringApplicationCharge.Name,
		Status: strings.ToLower(out.RecurringApplicationCharge.Status),
		Test:   out.RecurringApplicationCharge.Test,
	}, nil
}

// ActivateRecurringCharge asks the platform to activate an accepted
// charge and returns its resulting state.
func (c *Client) ActivateRecurringCharge(ctx context.Context, shopDomain, accessToken, chargeID string) (*RecurringCharge, error) {
	var out struct {
		RecurringApplicationCharge struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Status string `json:"status"`
			Test   bool   `json:"test"`
		} `json:"recurring_application_charge"`
	}

	rawURL := c.restURL(shopDomain, fmt.Sprintf("recurring_application_charges/%s/activate.json", chargeID))
	if _, err := c.doJSON(ctx, http.MethodPost, rawURL, accessToken, map[string]interface{}{}, &out); err != nil {
		return nil, err
	}
	return &RecurringCharge{
		ID:     fmt.Sprintf("%d", out.RecurringApplicationCharge.ID),
		Name:   out.RecurringApplicationCharge.Name,
		Status: strings.ToLower(out.RecurringApplicationCharge.Status),
		Test:   out.RecurringApplicationCharge.Test,
	}, nil
}
