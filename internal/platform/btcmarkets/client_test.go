package btcmarkets

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

var testSecret = []byte("btcm-test-secret")

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	signer, err := crypto.NewVenueSigner("test-key", base64.StdEncoding.EncodeToString(testSecret), nil)
	require.NoError(t, err)
	return NewClient(srv.URL, signer)
}

func TestLastPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/market/ETH/AUD/tick", r.URL.Path)
		_, _ = io.WriteString(w, `{"bestBid":449.1,"bestAsk":451.99,"lastPrice":450.37,"currency":"AUD","instrument":"ETH","timestamp":1510000000,"volume24h":1234.5}`)
	})

	q, err := c.LastPrice(t.Context(), domain.ETH)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("450.37").Equal(q.Amount))
	assert.Equal(t, domain.ETH, q.Asset)
	assert.Equal(t, domain.AUD, q.Currency)
	assert.Equal(t, SourceName, q.Source)
}

func TestLastPriceMissingField(t *testing.T) {
	for name, body := range map[string]string{
		"absent": `{"bestBid":1,"bestAsk":2}`,
		"null":   `{"lastPrice":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, body)
			})
			_, err := c.LastPrice(t.Context(), domain.BTC)
			require.ErrorIs(t, err, domain.ErrMissingField)
		})
	}
}

func TestLastPriceMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html>oops`)
	})
	_, err := c.LastPrice(t.Context(), domain.BTC)
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestLastPriceTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, nil)
	_, err := c.LastPrice(t.Context(), domain.BTC)
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestLastPriceServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.LastPrice(t.Context(), domain.BTC)
	require.ErrorIs(t, err, domain.ErrNetwork)
}

func TestSignedRequestHeadersAndSignature(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "UTF-8", r.Header.Get("Accept-Charset"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		nonce, err := strconv.ParseInt(r.Header.Get("timestamp"), 10, 64)
		require.NoError(t, err)

		mac := hmac.New(sha512.New, testSecret)
		mac.Write([]byte(r.URL.Path + "\n" + strconv.FormatInt(nonce, 10) + "\n" + string(body)))
		assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), r.Header.Get("signature"))

		_, _ = io.WriteString(w, `{"success":true}`)
	})

	_, err := c.SignedRequest(t.Context(), http.MethodPost, "/order/history", map[string]any{"limit": 1})
	require.NoError(t, err)
}

func TestSignedRequestAuthFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"401": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		"403": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		},
		"envelope": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"errorCode":1,"errorMessage":"Authentication failed."}`)
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			calls := 0
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls++
				h(w, r)
			})
			_, err := c.SignedRequest(t.Context(), http.MethodPost, "/order/history", nil)
			require.ErrorIs(t, err, domain.ErrAuth)
			assert.Equal(t, 1, calls, "auth failures are not retried")
		})
	}
}

func TestSignedRequestWithoutCredentials(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	_, err := c.SignedRequest(t.Context(), http.MethodPost, "/order/history", nil)
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestOrderHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/order/history", r.URL.Path)

		var req orderHistoryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, orderHistoryRequest{Currency: "AUD", Instrument: "ETH", Limit: 10, Since: 0}, req)

		_, _ = io.WriteString(w, `{"success":true,"errorCode":null,"errorMessage":null,"orders":[
			{"id":1001,"currency":"AUD","instrument":"ETH","orderSide":"Ask","ordertype":"Limit",
			 "creationTime":1510000000000,"status":"Fully Matched","price":45037000000,
			 "volume":10000000,"openVolume":0,
			 "trades":[{"id":5,"creationTime":1510000001000,"price":45037000000,"volume":10000000,"fee":337777}]}]}`)
	})

	orders, err := c.OrderHistory(t.Context(), domain.ETH, domain.AUD, 10, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	o := orders[0]
	assert.Equal(t, int64(1001), o.ID)
	assert.True(t, decimal.RequireFromString("450.37").Equal(o.Price))
	assert.True(t, decimal.RequireFromString("0.1").Equal(o.Volume))
	assert.True(t, o.OpenVolume.IsZero())
	assert.Equal(t, time.UnixMilli(1510000000000).UTC(), o.CreatedAt)
	require.Len(t, o.Trades, 1)
	assert.True(t, decimal.RequireFromString("0.00337777").Equal(o.Trades[0].Fee))
}
