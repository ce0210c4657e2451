package shopauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrSignatureMismatch is returned when a computed HMAC does not match
	// the one presented by the caller.
	ErrSignatureMismatch = errors.New("request signature mismatch")
	// ErrNonceMismatch is returned when the OAuth callback state does not
	// equal the nonce issued for the install attempt.
	ErrNonceMismatch = errors.New("install nonce mismatch")
	// ErrTokenInvalid is returned for any session token defect: bad
	// encoding, bad signature, expired, not yet valid or wrong audience.
	ErrTokenInvalid = errors.New("session token invalid")
)

// Verifier authenticates the four inbound request channels plus the
// internal one-time bypass tokens. It holds no state beyond the bypass
// token store.
type Verifier struct {
	secret   string
	clientID string

	mu     sync.Mutex
	bypass TokenStore
}

// NewVerifier creates a verifier for the app's shared secret and client id.
func NewVerifier(secret, clientID string) *Verifier {
	return &Verifier{
		secret:   secret,
		clientID: clientID,
		bypass:   newMemoryTokenStore(),
	}
}

// canonicalMessage joins the query as sorted key=value pairs, excluding the
// signature parameters themselves. The separator distinguishes regular
// callbacks ("&") from app-proxy requests ("").
func canonicalMessage(query url.Values, sep string) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	return strings.Join(pairs, sep)
}

// VerifyOAuthCallbackSignature checks the hex-encoded hmac parameter of a
// regular OAuth/install callback against HMAC-SHA256 of the canonical
// query message. Parameter order never matters.
func (v *Verifier) VerifyOAuthCallbackSignature(query url.Values) error {
	presented, err := hex.DecodeString(strings.ToLower(query.Get("hmac")))
	if err != nil || len(presented) == 0 {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(canonicalMessage(query, "&")))
	if !hmac.Equal(mac.Sum(nil), presented) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyOAuthCallback verifies the callback signature and then the state
// parameter against the nonce issued for this install attempt.
func (v *Verifier) VerifyOAuthCallback(query url.Values, nonce string) error {
	if err := v.VerifyOAuthCallbackSignature(query); err != nil {
		return err
	}
	state := query.Get("state")
	if nonce == "" || state == "" || !hmac.Equal([]byte(state), []byte(nonce)) {
		return ErrNonceMismatch
	}
	return nil
}

// VerifyAppProxy checks the signature parameter of a platform-proxied
// request. Same canonicalization as the callback but with no separator and
// no nonce.
func (v *Verifier) VerifyAppProxy(query url.Values) error {
	presented, err := hex.DecodeString(strings.ToLower(query.Get("signature")))
	if err != nil || len(presented) == 0 {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte(canonicalMessage(query, "")))
	if !hmac.Equal(mac.Sum(nil), presented) {
		return ErrSignatureMismatch
	}
	return nil
}

// VerifyWebhook checks the base64-encoded HMAC header of a platform
// webhook against HMAC-SHA256 of the raw, unparsed request body. Callers
// must run this before any JSON decoding.
func (v *Verifier) VerifyWebhook(rawBody []byte, headerSignature string) error {
	presented, err := base64.StdEncoding.DecodeString(strings.TrimSpace(headerSignature))
	if err != nil || len(presented) == 0 {
		return ErrSignatureMismatch
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(rawBody)
	if !hmac.Equal(mac.Sum(nil), presented) {
		return ErrSignatureMismatch
	}
	return nil
}
