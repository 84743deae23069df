// Package coinbase is the REST client for the Coinbase v2 retail API: public
// buy prices and signed payment-method limits.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.coinbase.com"

// Client is the REST client for the Coinbase v2 API.
type Client struct {
	baseURL    string
	auth       *crypto.HMACAuth
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Coinbase client. auth may be nil, in which case
// only public price endpoints work.
func NewClient(baseURL string, auth *crypto.HMACAuth) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if auth != nil && auth.Version == "" {
		auth.Version = DefaultAPIVersion
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// BuyPrice returns the retail buy price of asset in currency.
func (c *Client) BuyPrice(ctx context.Context, asset domain.Asset, currency domain.Currency) (domain.PriceQuote, error) {
	path := fmt.Sprintf("/v2/prices/%s-%s/buy", asset, currency)

	body, err := c.doRequest(ctx, path, false)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: buy price %s-%s: %w", asset, currency, err)
	}

	var resp priceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: decode buy price: %w: %w", domain.ErrParse, err)
	}
	if !resp.Data.Amount.Valid {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: buy price %s-%s: data.amount: %w", asset, currency, domain.ErrMissingField)
	}

	return domain.PriceQuote{
		Asset:    asset,
		Currency: currency,
		Amount:   resp.Data.Amount.Decimal,
		Source:   SourceName,
		At:       c.now(),
	}, nil
}

// PaymentMethods lists the payment methods linked to the account.
func (c *Client) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	body, err := c.doRequest(ctx, "/v2/payment-methods", true)
	if err != nil {
		return nil, fmt.Errorf("coinbase: payment methods: %w", err)
	}

	var resp paymentMethodsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("coinbase: decode payment methods: %w: %w", domain.ErrParse, err)
	}
	return resp.Data, nil
}

// RemainingAllowance returns the remaining buy limit of the payment method at
// index. A missing payment method is a configuration problem.
func (c *Client) RemainingAllowance(ctx context.Context, index int) (domain.PurchaseAllowance, error) {
	methods, err := c.PaymentMethods(ctx)
	if err != nil {
		return domain.PurchaseAllowance{}, err
	}
	if len(methods) == 0 {
		return domain.PurchaseAllowance{}, fmt.Errorf("coinbase: no payment methods on account: %w", domain.ErrConfig)
	}
	if index < 0 || index >= len(methods) {
		return domain.PurchaseAllowance{}, fmt.Errorf("coinbase: payment method index %d out of range (have %d): %w",
			index, len(methods), domain.ErrConfig)
	}

	pm := methods[index]
	if len(pm.Limits.Buy) == 0 {
		return domain.PurchaseAllowance{}, fmt.Errorf("coinbase: payment method %s: limits.buy: %w", pm.ID, domain.ErrMissingField)
	}
	remaining := pm.Limits.Buy[0].Remaining
	if !remaining.Amount.Valid {
		return domain.PurchaseAllowance{}, fmt.Errorf("coinbase: payment method %s: remaining.amount: %w", pm.ID, domain.ErrMissingField)
	}

	cur := domain.Currency(strings.ToUpper(remaining.Currency))
	if cur == "" {
		cur = domain.Currency(strings.ToUpper(pm.Currency))
	}
	return domain.PurchaseAllowance{
		Remaining:     remaining.Amount.Decimal,
		Currency:      cur,
		PaymentMethod: pm.Name,
	}, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doRequest(ctx context.Context, path string, signed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if signed {
		if c.auth == nil {
			return nil, fmt.Errorf("no API credentials: %w", domain.ErrConfig)
		}
		for k, v := range c.auth.RetailHeadersAt(http.MethodGet, path, "", c.now().Unix()) {
			req.Header.Set(k, v)
		}
	} else if c.auth != nil {
		req.Header.Set("CB-VERSION", c.auth.Version)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrNetwork, err)
	}
	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps non-2xx status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	var apiErr errorResponse
	if json.Unmarshal(body, &apiErr) == nil && len(apiErr.Errors) > 0 {
		msg = apiErr.Errors[0].ID + ": " + apiErr.Errors[0].Message
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuth, statusCode, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNotFound, statusCode, msg)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, statusCode, msg)
	}
}
