package shopauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
)

// SessionTokenClaims is the payload of an embedded-admin session token.
type SessionTokenClaims struct {
	Issuer    string `json:"iss"`
	Dest      string `json:"dest"`
	Audience  string `json:"aud"`
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
	NotBefore int64  `json:"nbf"`
	IssuedAt  int64  `json:"iat"`
	JTI       string `json:"jti"`
	SessionID string `json:"sid"`
}

// VerifySessionToken validates a compact header.payload.signature token
// from the embedded admin UI: HMAC-SHA256 signature over header.payload,
// exp in the future, nbf not in the future and aud equal to the app client
// id. Every defect maps to ErrTokenInvalid.
func (v *Verifier) VerifySessionToken(token string, now time.Time) (*SessionTokenClaims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, ErrTokenInvalid
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(parts[0] + "." + parts[1]))
	expected := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(normalizeBase64URL(parts[2]))) {
		return nil, ErrTokenInvalid
	}

	payload, err := base64.RawURLEncoding.DecodeString(normalizeBase64URL(parts[1]))
	if err != nil {
		return nil, ErrTokenInvalid
	}
	var claims SessionTokenClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenInvalid
	}

	if claims.ExpiresAt <= now.Unix() {
		return nil, ErrTokenInvalid
	}
	if claims.NotBefore > now.Unix() {
		return nil, ErrTokenInvalid
	}
	if claims.Audience != v.clientID {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

// normalizeBase64URL converts standard base64 to the unpadded URL-safe
// alphabet, matching how the platform encodes token segments.
func normalizeBase64URL(s string) string {
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimRight(s, "=")
}
