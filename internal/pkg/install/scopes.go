package install

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/HandyCommerce/ShopBridge/app/models"
)

// ScopeCheck is the outcome of comparing granted platform scopes to the
// ones the app is configured to require.
type ScopeCheck struct {
	Missing   []string
	ReauthURL string
}

// Valid reports whether every required scope is granted.
func (c ScopeCheck) Valid() bool {
	return len(c.Missing) == 0
}

// ValidateAccessScopes compares the scopes granted to the app installation
// with the configured required list. When any is missing it mints a fresh
// install URL so the merchant can re-authorize.
func (s *Service) ValidateAccessScopes(ctx context.Context, shop *models.Shop) (*ScopeCheck, error) {
	granted, err := s.api.GetAccessScopes(ctx, shop.Domain, shop.AccessToken)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(granted))
	for _, h := range granted {
		have[h] = struct{}{}
	}

	check := &ScopeCheck{}
	for _, required := range s.cfg.Scopes {
		if _, ok := have[required]; !ok {
			check.Missing = append(check.Missing, required)
		}
	}
	if check.Valid() {
		return check, nil
	}

	log.Warnf("[Install] %s is missing scopes %v, requesting re-auth", shop.Domain, check.Missing)
	reauth, err := s.issueAuthURL(shop)
	if err != nil {
		return nil, err
	}
	check.ReauthURL = reauth
	return check, nil
}
