package constants

// Static route constants
const (
	InstallRoute         = "/install"
	InstallRedirectRoute = "/install_redirect_uri"
	AdminBillingRoute    = "/admin/billing"
	AdminPlanRoute       = "/admin/plan"
	ChargeActivateRoute  = "/embed/billing_charge_activate"
	WebhookRoute         = "/webhooks/:event"
)

// Headers used on platform-facing requests
const (
	HeaderShopDomain   = "X-Shopbridge-Shop-Domain"
	HeaderHmacSha256   = "X-Shopbridge-Hmac-Sha256"
	HeaderSessionToken = "X-Session-Token"
)
