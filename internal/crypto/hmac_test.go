package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVenueCanonical(t *testing.T) {
	got := VenueCanonical("/order/history", 1500000000123, `{"limit":10}`)
	assert.Equal(t, "/order/history\n1500000000123\n{\"limit\":10}", got)
}

func TestVenueSignerSignAt(t *testing.T) {
	secret := []byte("super-secret-key-bytes")
	encoded := base64.StdEncoding.EncodeToString(secret)

	s, err := NewVenueSigner("pub", encoded, nil)
	require.NoError(t, err)

	req := s.SignAt("POST", "/order/history", `{"currency":"AUD"}`, 42)

	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte("/order/history\n42\n{\"currency\":\"AUD\"}"))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.Equal(t, want, req.Signature)
	assert.Equal(t, int64(42), req.Nonce)
	assert.Equal(t, "POST", req.Method)

	h := req.Headers(s.APIKey())
	assert.Equal(t, "pub", h["apikey"])
	assert.Equal(t, "42", h["timestamp"])
	assert.Equal(t, want, h["signature"])
}

func TestVenueSignerDeterministic(t *testing.T) {
	s, err := NewVenueSigner("k", base64.StdEncoding.EncodeToString([]byte("s")), nil)
	require.NoError(t, err)

	a := s.SignAt("GET", "/p", "", 7)
	b := s.SignAt("GET", "/p", "", 7)
	c := s.SignAt("GET", "/p", "", 8)
	assert.Equal(t, a.Signature, b.Signature)
	assert.NotEqual(t, a.Signature, c.Signature)
}

func TestVenueSignerRejectsBadSecret(t *testing.T) {
	_, err := NewVenueSigner("k", "not base64!!", nil)
	require.Error(t, err)
}

func TestVenueSignerSignUsesIncreasingNonces(t *testing.T) {
	fixed := time.UnixMilli(1_000)
	s, err := NewVenueSigner("k", base64.StdEncoding.EncodeToString([]byte("s")),
		NewNonceSource(func() time.Time { return fixed }))
	require.NoError(t, err)

	first := s.Sign("GET", "/p", "")
	second := s.Sign("GET", "/p", "")
	assert.Equal(t, int64(1_000), first.Nonce)
	assert.Equal(t, int64(1_001), second.Nonce)
}

func TestRetailHeadersAt(t *testing.T) {
	h := &HMACAuth{Key: "key", Secret: "secret", Version: "2017-08-07"}
	headers := h.RetailHeadersAt("GET", "/v2/payment-methods", "", 1700000000)

	mac := hmac.New(sha256.New, []byte("secret"))
	mac.Write([]byte("1700000000GET/v2/payment-methods"))

	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), headers["CB-ACCESS-SIGN"])
	assert.Equal(t, "1700000000", headers["CB-ACCESS-TIMESTAMP"])
	assert.Equal(t, "key", headers["CB-ACCESS-KEY"])
	assert.Equal(t, "2017-08-07", headers["CB-VERSION"])
}

func TestHMACAuthStringRedacts(t *testing.T) {
	h := &HMACAuth{Key: "abcdefgh", Secret: "topsecretvalue"}
	s := h.String()
	assert.NotContains(t, s, "topsecretvalue")
	assert.True(t, strings.Contains(s, "abcd****"))
}

func TestNonceSourceStrictlyIncreasing(t *testing.T) {
	clock := time.UnixMilli(5_000)
	n := NewNonceSource(func() time.Time { return clock })

	assert.Equal(t, int64(5_000), n.Next())
	assert.Equal(t, int64(5_001), n.Next())

	// Clock going backwards must not produce a smaller nonce.
	clock = time.UnixMilli(4_000)
	assert.Equal(t, int64(5_002), n.Next())

	clock = time.UnixMilli(9_000)
	assert.Equal(t, int64(9_000), n.Next())
}

func TestNonceSourceConcurrent(t *testing.T) {
	n := NewNonceSource(nil)

	const workers, per = 8, 200
	var (
		mu   sync.Mutex
		seen = make(map[int64]struct{}, workers*per)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				v := n.Next()
				mu.Lock()
				seen[v] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*per)
}
