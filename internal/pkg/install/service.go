package install

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/HandyCommerce/ShopBridge/app/models"
	"github.com/HandyCommerce/ShopBridge/app/repository"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/config"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopauth"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shopify"
	"github.com/HandyCommerce/ShopBridge/internal/pkg/shoplock"
)

// DefaultWebhookTopics are registered for every shop during install.
var DefaultWebhookTopics = []string{"app_uninstalled", "shop_update"}

// PlatformAPI is the slice of the platform client the installer needs.
type PlatformAPI interface {
	AuthorizeURL(shopDomain, scopes, redirectURI, nonce string) (string, error)
	ExchangeCode(ctx context.Context, shopDomain, code string) (string, error)
	GetShopProfile(ctx context.Context, shopDomain, accessToken string) (*shopify.ShopProfile, error)
	CreateWebhookSubscription(ctx context.Context, shopDomain, accessToken, topic, address string) (*shopify.WebhookSubscription, error)
	ListWebhookSubscriptions(ctx context.Context, shopDomain, accessToken string) ([]shopify.WebhookSubscription, error)
	DeleteWebhookSubscription(ctx context.Context, shopDomain, accessToken string, id int64) error
	GetAccessScopes(ctx context.Context, shopDomain, accessToken string) ([]string, error)
}

// Service drives a shop through unknown → nonce_issued → installed →
// uninstalled.
type Service struct {
	cfg       *config.AppConfig
	shops     repository.ShopRepository
	subs      repository.SubscriptionRepository
	installed repository.InstalledShopsRepository
	api       PlatformAPI
	verifier  *shopauth.Verifier
	locks     *shoplock.Keyed

	hooks []postInstallHook
}

// postInstallHook runs after token exchange; hooks execute in order and
// the first failure aborts the install.
type postInstallHook struct {
	name string
	run  func(ctx context.Context, shop *models.Shop) error
}

// NewService creates the install lifecycle service.
func NewService(cfg *config.AppConfig, repos *repository.Repositories, api PlatformAPI, verifier *shopauth.Verifier, locks *shoplock.Keyed) *Service {
	s := &Service{
		cfg:       cfg,
		shops:     repos.Shop,
		subs:      repos.Subscription,
		installed: repos.InstalledShops,
		api:       api,
		verifier:  verifier,
		locks:     locks,
	}
	s.hooks = []postInstallHook{
		{name: "sync_shop_profile", run: s.hookSyncShopProfile},
		{name: "register_default_webhooks", run: s.hookRegisterDefaultWebhooks},
	}
	return s
}

// BeginInstall loads or creates the shop and returns the URL to send the
// merchant to. Installed shops short-circuit to the platform app page;
// everyone else gets a fresh nonce and the OAuth consent URL.
func (s *Service) BeginInstall(ctx context.Context, shopDomain string) (string, error) {
	_ = ctx
	shop, err := s.shops.GetOrCreateByDomain(shopDomain)
	if err != nil {
		return "", fmt.Errorf("load shop: %w", err)
	}

	if shop.Installed {
		return s.cfg.PlatformAppURL, nil
	}

	return s.issueAuthURL(shop)
}

// issueAuthURL mints a fresh nonce for the shop and builds the consent
// URL. Also used by the scope guard to force a re-authorization of an
// already installed shop.
func (s *Service) issueAuthURL(shop *models.Shop) (string, error) {
	nonce, err := newNonce()
	if err != nil {
		return "", err
	}
	shop.Nonce = nonce
	if err := s.shops.Update(shop); err != nil {
		return "", fmt.Errorf("persist nonce: %w", err)
	}

	return s.api.AuthorizeURL(shop.Domain, s.cfg.ScopeString(), s.cfg.RedirectURI, nonce)
}

// CompleteInstall handles the verified OAuth callback: exchange the code,
// persist the token, run the post-install hooks in order and only then
// mark the shop installed. Any failure leaves the shop retriable in
// nonce_issued. Replaying a valid callback after the install finished
// is a no-op.
func (s *Service) CompleteInstall(ctx context.Context, shopDomain string, query url.Values) error {
	shop, err := s.shops.GetByDomain(shopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return shopauth.ErrNonceMismatch
		}
		return fmt.Errorf("load shop: %w", err)
	}

	if shop.Installed {
		// Replayed or refreshed callback after a finished install. The
		// nonce was cleared when the install completed, so only the
		// signature can still be checked.
		return s.verifier.VerifyOAuthCallbackSignature(query)
	}

	if err := s.verifier.VerifyOAuthCallback(query, shop.Nonce); err != nil {
		return err
	}

	return s.locks.Do(shop.Domain, func() error {
		// Re-read under the lock; a concurrent callback may have won.
		shop, err := s.shops.GetByDomain(shopDomain)
		if err != nil {
			return fmt.Errorf("load shop: %w", err)
		}
		if shop.Installed {
			return nil
		}

		token, err := s.api.ExchangeCode(ctx, shop.Domain, query.Get("code"))
		if err != nil {
			log.Errorf("[Install] token exchange failed for %s: %v", shop.Domain, err)
			return err
		}
		shop.AccessToken = token
		if shop.SettingsJSON == "" {
			shop.SettingsJSON = "{}"
		}
		if err := s.shops.Update(shop); err != nil {
			return fmt.Errorf("persist access token: %w", err)
		}

		for _, hook := range s.hooks {
			if err := hook.run(ctx, shop); err != nil {
				log.Errorf("[Install] hook %s failed for %s: %v", hook.name, shop.Domain, err)
				// Back out to nonce_issued so the next attempt retries
				// from scratch; a token may not outlive a failed install.
				shop.AccessToken = ""
				if rerr := s.shops.Update(shop); rerr != nil {
					log.Errorf("[Install] rollback failed for %s: %v", shop.Domain, rerr)
				}
				return fmt.Errorf("post-install hook %s: %w", hook.name, err)
			}
		}

		shop.Installed = true
		shop.Nonce = ""
		if err := s.shops.Update(shop); err != nil {
			return fmt.Errorf("mark installed: %w", err)
		}
		if err := s.installed.Add(shop.Domain); err != nil {
			log.Warnf("[Install] installed-shops cache add failed for %s: %v", shop.Domain, err)
		}

		log.Infof("[Install] %s installed", shop.Domain)
		return nil
	})
}

// Uninstall clears the shop's credentials and webhook registrations, ends
// its active subscription and removes it from the installed cache. Driven
// by the app_uninstalled webhook.
func (s *Service) Uninstall(ctx context.Context, shopDomain string) error {
	_ = ctx
	return s.locks.Do(shopDomain, func() error {
		shop, err := s.shops.GetByDomain(shopDomain)
		if err != nil {
			return fmt.Errorf("load shop: %w", err)
		}

		shop.AccessToken = ""
		shop.Installed = false
		if err := shop.SetWebhooks(nil); err != nil {
			return err
		}
		if err := s.shops.Update(shop); err != nil {
			return fmt.Errorf("persist uninstall: %w", err)
		}

		if err := s.installed.Remove(shop.Domain); err != nil {
			log.Warnf("[Install] installed-shops cache remove failed for %s: %v", shop.Domain, err)
		}
		if err := s.subs.EndActive(shop.ID, time.Now()); err != nil {
			return fmt.Errorf("end active subscription: %w", err)
		}

		log.Infof("[Install] %s uninstalled", shop.Domain)
		return nil
	})
}

// hookSyncShopProfile fetches and stores the shop's profile fields.
func (s *Service) hookSyncShopProfile(ctx context.Context, shop *models.Shop) error {
	profile, err := s.api.GetShopProfile(ctx, shop.Domain, shop.AccessToken)
	if err != nil {
		return err
	}
	shop.Name = profile.Name
	shop.Email = profile.Email
	shop.PlanDisplayName = profile.PlanDisplayName
	return s.shops.Update(shop)
}

// hookRegisterDefaultWebhooks reconciles the shop's platform-side
// webhook subscriptions with the default topics and records them on
// the shop row. Registrations pointing at a stale address from an
// earlier deployment are replaced.
func (s *Service) hookRegisterDefaultWebhooks(ctx context.Context, shop *models.Shop) error {
	existing, err := s.api.ListWebhookSubscriptions(ctx, shop.Domain, shop.AccessToken)
	if err != nil {
		return err
	}
	byTopic := make(map[string]shopify.WebhookSubscription, len(existing))
	for _, sub := range existing {
		byTopic[sub.Topic] = sub
	}

	hooks := make([]models.RegisteredWebhook, 0, len(DefaultWebhookTopics))
	for _, topic := range DefaultWebhookTopics {
		address := fmt.Sprintf("%s/webhooks/%s", s.cfg.AppBaseURL, topic)
		if current, ok := byTopic[topic]; ok {
			if current.Address == address {
				hooks = append(hooks, models.RegisteredWebhook{
					ID:      fmt.Sprintf("%d", current.ID),
					Topic:   current.Topic,
					Address: current.Address,
				})
				continue
			}
			if err := s.api.DeleteWebhookSubscription(ctx, shop.Domain, shop.AccessToken, current.ID); err != nil {
				return err
			}
		}
		created, err := s.api.CreateWebhookSubscription(ctx, shop.Domain, shop.AccessToken, topic, address)
		if err != nil {
			return err
		}
		hooks = append(hooks, models.RegisteredWebhook{
			ID:      fmt.Sprintf("%d", created.ID),
			Topic:   created.Topic,
			Address: created.Address,
		})
	}
	if err := shop.SetWebhooks(hooks); err != nil {
		return err
	}
	return s.shops.Update(shop)
}

func newNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
