package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/HandyCommerce/ShopBridge/internal/pkg/env"
)

// AppConfig carries everything the platform integration needs. It is built
// once at startup from the environment and passed to components at
// construction; there is no hot reload.
type AppConfig struct {
	ClientID     string `validate:"required"`
	SharedSecret string `validate:"required"`
	APIVersion   string `validate:"required"`
	Scopes       []string
	RedirectURI  string `validate:"required,url"`
	AppBaseURL   string `validate:"required,url"`

	// PlatformAppURL is the platform-hosted landing page merchants are sent
	// to after a successful install.
	PlatformAppURL string `validate:"required,url"`
}

var (
	cfg  *AppConfig
	once sync.Once
)

// Load builds and validates the AppConfig from the environment. It panics
// on invalid configuration since the app cannot serve without it.
func Load() *AppConfig {
	once.Do(func() {
		c := &AppConfig{
			ClientID:       strings.TrimSpace(env.GetEnv("PLATFORM_CLIENT_ID", "")),
			SharedSecret:   strings.TrimSpace(env.GetEnv("PLATFORM_SHARED_SECRET", "")),
			APIVersion:     strings.TrimSpace(env.GetEnv("PLATFORM_API_VERSION", "2024-07")),
			Scopes:         splitScopes(env.GetEnv("PLATFORM_SCOPES", "read_products")),
			RedirectURI:    strings.TrimSpace(env.GetEnv("PLATFORM_REDIRECT_URI", "")),
			AppBaseURL:     strings.TrimRight(env.GetEnv("APP_BASE_URL", ""), "/"),
			PlatformAppURL: strings.TrimSpace(env.GetEnv("PLATFORM_APP_URL", "")),
		}
		if err := validator.New().Struct(c); err != nil {
			panic(fmt.Sprintf("invalid app configuration: %v", err))
		}
		cfg = c
	})
	return cfg
}

// Get returns the loaded config, loading it on first use.
func Get() *AppConfig {
	return Load()
}

// ScopeString renders the scope list the way the authorize URL expects it.
func (c *AppConfig) ScopeString() string {
	return strings.Join(c.Scopes, ",")
}

func splitScopes(raw string) []string {
	parts := strings.Split(raw, ",")
	scopes := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
