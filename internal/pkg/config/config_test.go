package config

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func validConfig() *AppConfig {
	return &AppConfig{
		ClientID:       "client-id",
		SharedSecret:   "shared-secret",
		APIVersion:     "2024-07",
		Scopes:         []string{"read_products", "write_products"},
		RedirectURI:    "https://app.example.com/install_redirect_uri",
		AppBaseURL:     "https://app.example.com",
		PlatformAppURL: "https://platform.example.com/apps/shopbridge",
	}
}

func TestConfigValidation(t *testing.T) {
	v := validator.New()

	if err := v.Struct(validConfig()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(c *AppConfig)
	}{
		{"missing client id", func(c *AppConfig) { c.ClientID = "" }},
		{"missing shared secret", func(c *AppConfig) { c.SharedSecret = "" }},
		{"missing api version", func(c *AppConfig) { c.APIVersion = "" }},
		{"redirect uri not a url", func(c *AppConfig) { c.RedirectURI = "not-a-url" }},
		{"missing app base url", func(c *AppConfig) { c.AppBaseURL = "" }},
		{"missing platform app url", func(c *AppConfig) { c.PlatformAppURL = "" }},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mutate(cfg)
		if err := v.Struct(cfg); err == nil {
			t.Fatalf("%s: expected validation error", c.name)
		}
	}
}

func TestSplitScopes(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"read_products", []string{"read_products"}},
		{"read_products, write_products", []string{"read_products", "write_products"}},
		{"read_products,,write_products,", []string{"read_products", "write_products"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitScopes(c.raw)
		if len(got) != len(c.want) {
			t.Fatalf("splitScopes(%q) = %v, want %v", c.raw, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("splitScopes(%q) = %v, want %v", c.raw, got, c.want)
			}
		}
	}
}

func TestScopeString(t *testing.T) {
	cfg := validConfig()
	if got := cfg.ScopeString(); got != "read_products,write_products" {
		t.Fatalf("ScopeString() = %q", got)
	}
}
