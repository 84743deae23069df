// Package btcmarkets is the REST client for the BTC Markets exchange: public
// tick prices and HMAC-SHA512 signed account endpoints.
package btcmarkets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/crypto"
	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.btcmarkets.net"

// QuoteCurrency is the only fiat the venue's markets are quoted in.
const QuoteCurrency = domain.AUD

// authErrorCodes are the v1 errorCode values that mean the key, secret or
// signature was rejected.
var authErrorCodes = map[int]bool{1: true, 3: true}

// Client is the REST client for BTC Markets. One Client may be shared across
// goroutines; signing is serialized by the nonce source.
type Client struct {
	baseURL    string
	signer     *crypto.VenueSigner
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new BTC Markets client.
//
// signer may be nil, in which case only public endpoints work.
func NewClient(baseURL string, signer *crypto.VenueSigner) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// LastPrice returns the last trade price of asset on the AUD market.
func (c *Client) LastPrice(ctx context.Context, asset domain.Asset) (domain.PriceQuote, error) {
	path := fmt.Sprintf("/market/%s/%s/tick", url.PathEscape(asset.String()), QuoteCurrency)

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("btcmarkets: tick %s: %w", asset, err)
	}

	var tick tickResponse
	if err := json.Unmarshal(body, &tick); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("btcmarkets: decode tick %s: %w: %w", asset, domain.ErrParse, err)
	}
	if !tick.LastPrice.Valid {
		return domain.PriceQuote{}, fmt.Errorf("btcmarkets: tick %s: lastPrice: %w", asset, domain.ErrMissingField)
	}

	return domain.PriceQuote{
		Asset:    asset,
		Currency: QuoteCurrency,
		Amount:   tick.LastPrice.Decimal,
		Source:   SourceName,
		At:       c.now(),
	}, nil
}

// SignedRequest sends an authenticated request. fields is marshalled to the
// JSON body the signature covers; nil sends an empty body. The raw response
// body is returned after status and success checks.
func (c *Client) SignedRequest(ctx context.Context, method, path string, fields any) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("btcmarkets: %s %s: no API credentials: %w", method, path, domain.ErrConfig)
	}

	var payload []byte
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("btcmarkets: marshal request body: %w", err)
		}
		payload = b
	}

	signed := c.signer.Sign(method, path, string(payload))

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("btcmarkets: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Charset", "UTF-8")
	req.Header.Set("Content-Type", "application/json")
	for k, v := range signed.Headers(c.signer.APIKey()) {
		req.Header.Set(k, v)
	}

	respBody, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("btcmarkets: %s %s: %w", method, path, err)
	}

	var status apiStatus
	if err := json.Unmarshal(respBody, &status); err != nil {
		return nil, fmt.Errorf("btcmarkets: %s %s: decode: %w: %w", method, path, domain.ErrParse, err)
	}
	if err := checkSuccess(status); err != nil {
		return nil, fmt.Errorf("btcmarkets: %s %s: %w", method, path, err)
	}
	return respBody, nil
}

// OrderHistory returns up to limit orders for instrument/currency created
// after the order id since.
func (c *Client) OrderHistory(ctx context.Context, instrument domain.Asset, currency domain.Currency, limit int, since int64) ([]Order, error) {
	body, err := c.SignedRequest(ctx, http.MethodPost, "/order/history", orderHistoryRequest{
		Currency:   currency.String(),
		Instrument: instrument.String(),
		Limit:      limit,
		Since:      since,
	})
	if err != nil {
		return nil, err
	}

	var resp orderHistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("btcmarkets: decode order history: %w: %w", domain.ErrParse, err)
	}

	orders := make([]Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		orders = append(orders, o.toOrder())
	}
	return orders, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrNetwork, err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// checkStatus maps non-2xx status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := strings.TrimSpace(string(body))
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuth, statusCode, bodyStr)
	case http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNotFound, statusCode, bodyStr)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrNetwork, statusCode, bodyStr)
	}
}

// checkSuccess inspects the success/errorCode envelope of signed responses.
func checkSuccess(s apiStatus) error {
	if s.Success == nil || *s.Success {
		return nil
	}
	code := 0
	if s.ErrorCode != nil {
		code = *s.ErrorCode
	}
	if authErrorCodes[code] || strings.Contains(strings.ToLower(s.ErrorMessage), "authentication") {
		return fmt.Errorf("%w: code %d: %s", domain.ErrAuth, code, s.ErrorMessage)
	}
	return fmt.Errorf("request rejected: code %d: %s", code, s.ErrorMessage)
}
