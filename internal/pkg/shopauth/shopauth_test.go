package shopauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sync"
	"testing"
	"time"
)

const testSecret = "test-shared-secret"

func signHex(t *testing.T, msg string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyOAuthCallbackOrderIndependent(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	sig := signHex(t, "code=abc&shop=foo.example.com&state=N1")

	queries := []string{
		"shop=foo.example.com&code=abc&state=N1&hmac=" + sig,
		"state=N1&hmac=" + sig + "&code=abc&shop=foo.example.com",
		"hmac=" + sig + "&shop=foo.example.com&state=N1&code=abc",
	}
	for _, raw := range queries {
		q, err := url.ParseQuery(raw)
		if err != nil {
			t.Fatalf("parse query %q: %v", raw, err)
		}
		if err := v.VerifyOAuthCallback(q, "N1"); err != nil {
			t.Fatalf("VerifyOAuthCallback(%q) = %v, want nil", raw, err)
		}
	}
}

func TestVerifyOAuthCallbackTamperedParam(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	sig := signHex(t, "code=abc&shop=foo.example.com&state=N1")

	q := url.Values{}
	q.Set("shop", "foo.example.com")
	q.Set("code", "abd") // changed value
	q.Set("state", "N1")
	q.Set("hmac", sig)

	if err := v.VerifyOAuthCallback(q, "N1"); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifyOAuthCallbackNonceMismatch(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	sig := signHex(t, "code=abc&shop=foo.example.com&state=N2")

	q := url.Values{}
	q.Set("shop", "foo.example.com")
	q.Set("code", "abc")
	q.Set("state", "N2")
	q.Set("hmac", sig)

	if err := v.VerifyOAuthCallback(q, "N1"); err != ErrNonceMismatch {
		t.Fatalf("expected ErrNonceMismatch, got %v", err)
	}
}

func TestVerifyOAuthCallbackMissingHmac(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	q := url.Values{}
	q.Set("shop", "foo.example.com")

	if err := v.VerifyOAuthCallback(q, "N1"); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}

func TestVerifyAppProxy(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	// App-proxy messages join the sorted pairs with no separator.
	sig := signHex(t, "path_prefix=/apps/bridgeshop=foo.example.comtimestamp=1700000000")

	q := url.Values{}
	q.Set("shop", "foo.example.com")
	q.Set("path_prefix", "/apps/bridge")
	q.Set("timestamp", "1700000000")
	q.Set("signature", sig)

	if err := v.VerifyAppProxy(q); err != nil {
		t.Fatalf("VerifyAppProxy = %v, want nil", err)
	}

	q.Set("timestamp", "1700000001")
	if err := v.VerifyAppProxy(q); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch after tamper, got %v", err)
	}
}

func TestVerifyWebhook(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	body := []byte(`{"id":42,"domain":"foo.example.com"}`)

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	header := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if err := v.VerifyWebhook(body, header); err != nil {
		t.Fatalf("VerifyWebhook = %v, want nil", err)
	}
	if err := v.VerifyWebhook([]byte(`{"id":43}`), header); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch for altered body, got %v", err)
	}
	if err := v.VerifyWebhook(body, "not base64!!"); err != ErrSignatureMismatch {
		t.Fatalf("expected ErrSignatureMismatch for bad header, got %v", err)
	}
}

func TestBypassTokenConsumeOnce(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")

	token, err := v.MintBypassToken()
	if err != nil {
		t.Fatalf("MintBypassToken: %v", err)
	}
	if !v.ConsumeBypassToken(token) {
		t.Fatal("first consume should succeed")
	}
	if v.ConsumeBypassToken(token) {
		t.Fatal("second consume must fail")
	}
	if v.ConsumeBypassToken("never-minted") {
		t.Fatal("unknown token must fail")
	}
}

func TestBypassTokenConcurrentConsume(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	token, err := v.MintBypassToken()
	if err != nil {
		t.Fatalf("MintBypassToken: %v", err)
	}

	const goroutines = 16
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- v.ConsumeBypassToken(token)
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", wins)
	}
}

// recordingTokenStore captures what the verifier writes so the shared
// store wiring can be asserted.
type recordingTokenStore struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newRecordingTokenStore() *recordingTokenStore {
	return &recordingTokenStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (r *recordingTokenStore) Get(key string) ([]byte, error) { return r.values[key], nil }

func (r *recordingTokenStore) Set(key string, val []byte, exp time.Duration) error {
	r.values[key] = val
	r.ttls[key] = exp
	return nil
}

func (r *recordingTokenStore) Delete(key string) error {
	delete(r.values, key)
	return nil
}

func TestBypassTokenUsesInjectedStore(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	store := newRecordingTokenStore()
	v.UseBypassTokenStore(store)

	token, err := v.MintBypassToken()
	if err != nil {
		t.Fatalf("MintBypassToken: %v", err)
	}
	key := bypassKeyPrefix + token
	if _, ok := store.values[key]; !ok {
		t.Fatalf("token not written to the injected store, keys: %v", store.values)
	}
	if store.ttls[key] != BypassTokenTTL {
		t.Fatalf("token stored with ttl %v, want %v", store.ttls[key], BypassTokenTTL)
	}

	if !v.ConsumeBypassToken(token) {
		t.Fatal("first consume should succeed")
	}
	if _, ok := store.values[key]; ok {
		t.Fatal("consume must delete the token from the store")
	}
	if v.ConsumeBypassToken(token) {
		t.Fatal("second consume must fail")
	}
}

func TestBypassTokenExpires(t *testing.T) {
	v := NewVerifier(testSecret, "client-1")
	token, err := v.MintBypassToken()
	if err != nil {
		t.Fatalf("MintBypassToken: %v", err)
	}

	// Age the stored deadline past its TTL.
	store := v.bypass.(*memoryTokenStore)
	store.deadlines[bypassKeyPrefix+token] = time.Now().Add(-time.Second)

	if v.ConsumeBypassToken(token) {
		t.Fatal("expired token must not verify")
	}
}
