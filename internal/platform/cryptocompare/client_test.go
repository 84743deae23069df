package cryptocompare

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL)
}

func TestPrices(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/data/price", r.URL.Path)
		assert.Equal(t, "BTC", r.URL.Query().Get("fsym"))
		assert.Equal(t, "AUD,USD,GBP", r.URL.Query().Get("tsyms"))
		_, _ = io.WriteString(w, `{"AUD":10012.5,"USD":7801.03,"GBP":5900}`)
	})

	got, err := c.Prices(t.Context(), domain.BTC, domain.AllCurrencies())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, decimal.RequireFromString("10012.5").Equal(got[domain.AUD].Amount))
	assert.True(t, decimal.RequireFromString("7801.03").Equal(got[domain.USD].Amount))
	assert.Equal(t, SourceName, got[domain.GBP].Source)
}

func TestPricesMissingCurrency(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"AUD":10012.5}`)
	})
	_, err := c.Prices(t.Context(), domain.BTC, domain.AllCurrencies())
	require.ErrorIs(t, err, domain.ErrMissingField)
}

func TestPricesErrorBody(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"Response":"Error","Message":"There is no data for the symbol XXX ."}`)
	})
	_, err := c.Prices(t.Context(), domain.BCH, []domain.Currency{domain.AUD})
	require.ErrorIs(t, err, domain.ErrMissingField)
	assert.Contains(t, err.Error(), "no data for the symbol")
}

func TestPricesMalformed(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	})
	_, err := c.Prices(t.Context(), domain.BTC, []domain.Currency{domain.AUD})
	require.ErrorIs(t, err, domain.ErrParse)
}

func TestPricesHTTPError(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := c.Prices(t.Context(), domain.BTC, []domain.Currency{domain.AUD})
	require.ErrorIs(t, err, domain.ErrNetwork)
}
