package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const methodsBody = `{"data":[
	{"id":"pm-1","type":"credit_card","name":"Visa ****1234","currency":"AUD",
	 "limits":{"buy":[{"period_in_days":7,
	   "total":{"amount":"1000.00","currency":"AUD"},
	   "remaining":{"amount":"520.00","currency":"AUD"}}]}},
	{"id":"pm-2","type":"bank","name":"Bank","currency":"AUD","limits":{"buy":[]}}
]}`

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, &crypto.HMACAuth{Key: "cb-key", Secret: "cb-secret"})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestBuyPrice(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/prices/BTC-AUD/buy", r.URL.Path)
		assert.Empty(t, r.Header.Get("CB-ACCESS-SIGN"))
		_, _ = io.WriteString(w, `{"data":{"base":"BTC","currency":"AUD","amount":"10000.00"}}`)
	})

	q, err := c.BuyPrice(t.Context(), domain.BTC, domain.AUD)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10000).Equal(q.Amount))
	assert.Equal(t, SourceName, q.Source)
}

func TestBuyPriceMissingAmount(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"currency":"AUD"}}`)
	})
	_, err := c.BuyPrice(t.Context(), domain.LTC, domain.AUD)
	require.ErrorIs(t, err, domain.ErrMissingField)
}

func TestPaymentMethodsSigned(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/payment-methods", r.URL.Path)
		assert.Equal(t, "cb-key", r.Header.Get("CB-ACCESS-KEY"))
		assert.Equal(t, "1700000000", r.Header.Get("CB-ACCESS-TIMESTAMP"))
		assert.Equal(t, DefaultAPIVersion, r.Header.Get("CB-VERSION"))

		mac := hmac.New(sha256.New, []byte("cb-secret"))
		mac.Write([]byte("1700000000GET/v2/payment-methods"))
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), r.Header.Get("CB-ACCESS-SIGN"))

		_, _ = io.WriteString(w, methodsBody)
	})

	methods, err := c.PaymentMethods(t.Context())
	require.NoError(t, err)
	require.Len(t, methods, 2)
	assert.Equal(t, "pm-1", methods[0].ID)
}

func TestRemainingAllowance(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, methodsBody)
	})

	a, err := c.RemainingAllowance(t.Context(), 0)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(520).Equal(a.Remaining))
	assert.Equal(t, domain.AUD, a.Currency)
	assert.Equal(t, "Visa ****1234", a.PaymentMethod)

	_, err = c.RemainingAllowance(t.Context(), 1)
	require.ErrorIs(t, err, domain.ErrMissingField)

	_, err = c.RemainingAllowance(t.Context(), 5)
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestRemainingAllowanceNoMethods(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	})
	_, err := c.RemainingAllowance(t.Context(), 0)
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestRemainingAllowanceUnauthorized(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"id":"authentication_error","message":"invalid signature"}]}`)
	})
	_, err := c.RemainingAllowance(t.Context(), 0)
	require.ErrorIs(t, err, domain.ErrAuth)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestPaymentMethodsWithoutCredentials(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	_, err := c.PaymentMethods(t.Context())
	require.ErrorIs(t, err, domain.ErrConfig)
}
