package shopauth

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// BypassTokenTTL bounds how long a minted token stays redeemable. A
// merchant normally bounces back from the charge confirmation page
// within seconds.
const BypassTokenTTL = 10 * time.Minute

const bypassKeyPrefix = "bypass_token:"

// TokenStore persists one-time bypass tokens. The method set matches the
// gofiber storage contract, so a shared Redis storage can back the
// verifier directly and tokens survive restarts and multiple instances.
type TokenStore interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
}

// memoryTokenStore is the process-local default, used until a shared
// store is wired in and by tests. Access is serialized by the verifier.
type memoryTokenStore struct {
	deadlines map[string]time.Time
}

func newMemoryTokenStore() *memoryTokenStore {
	return &memoryTokenStore{deadlines: make(map[string]time.Time)}
}

func (m *memoryTokenStore) Get(key string) ([]byte, error) {
	deadline, ok := m.deadlines[key]
	if !ok || time.Now().After(deadline) {
		return nil, nil
	}
	return []byte("1"), nil
}

func (m *memoryTokenStore) Set(key string, val []byte, exp time.Duration) error {
	m.deadlines[key] = time.Now().Add(exp)
	return nil
}

func (m *memoryTokenStore) Delete(key string) error {
	delete(m.deadlines, key)
	return nil
}

// UseBypassTokenStore swaps the process-local token store for a shared
// one. Call before the verifier starts serving requests.
func (v *Verifier) UseBypassTokenStore(store TokenStore) {
	v.mu.Lock()
	v.bypass = store
	v.mu.Unlock()
}

// MintBypassToken creates a one-time token for a server-generated redirect
// that must skip external signature checks. The token is valid for exactly
// one ConsumeBypassToken call and expires after BypassTokenTTL.
func (v *Verifier) MintBypassToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.bypass.Set(bypassKeyPrefix+token, []byte("1"), BypassTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ConsumeBypassToken removes the token from the store and reports whether
// it was present and unexpired. A second call with the same token always
// returns false.
func (v *Verifier) ConsumeBypassToken(token string) bool {
	if token == "" {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	val, err := v.bypass.Get(bypassKeyPrefix + token)
	if err != nil || len(val) == 0 {
		return false
	}
	if err := v.bypass.Delete(bypassKeyPrefix + token); err != nil {
		return false
	}
	return true
}
