// Package cryptocompare is the REST client for the CryptoCompare price API,
// used for informational reference prices.
package cryptocompare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://min-api.cryptocompare.com"

// SourceName labels quotes produced by this client.
const SourceName = "cryptocompare"

// Client is the REST client for the CryptoCompare public API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new CryptoCompare client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// Prices returns the index price of asset in each requested currency. Every
// requested currency must be present in the answer.
func (c *Client) Prices(ctx context.Context, asset domain.Asset, currencies []domain.Currency) (map[domain.Currency]domain.PriceQuote, error) {
	syms := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		syms = append(syms, cur.String())
	}

	params := url.Values{}
	params.Set("fsym", asset.String())
	params.Set("tsyms", strings.Join(syms, ","))

	body, err := c.doGet(ctx, "/data/price?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("cryptocompare: price %s: %w", asset, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("cryptocompare: decode price %s: %w: %w", asset, domain.ErrParse, err)
	}
	if status, ok := raw["Response"]; ok && strings.Trim(string(status), `"`) == "Error" {
		var msg string
		_ = json.Unmarshal(raw["Message"], &msg)
		return nil, fmt.Errorf("cryptocompare: price %s: %s: %w", asset, msg, domain.ErrMissingField)
	}

	at := c.now()
	out := make(map[domain.Currency]domain.PriceQuote, len(currencies))
	for _, cur := range currencies {
		v, ok := raw[cur.String()]
		if !ok {
			return nil, fmt.Errorf("cryptocompare: price %s: %s: %w", asset, cur, domain.ErrMissingField)
		}
		var amount decimal.Decimal
		if err := json.Unmarshal(v, &amount); err != nil {
			return nil, fmt.Errorf("cryptocompare: price %s/%s: %w: %w", asset, cur, domain.ErrParse, err)
		}
		out[cur] = domain.PriceQuote{
			Asset:    asset,
			Currency: cur,
			Amount:   amount,
			Source:   SourceName,
			At:       at,
		}
	}
	return out, nil
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
