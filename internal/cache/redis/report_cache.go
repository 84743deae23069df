package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// ReportCache keeps the latest cycle report as JSON and the latest quote per
// source and asset as hashes ("quote:{source}:{asset}" with fields amount,
// currency and ts). It is both a report sink and the reader the status API
// serves from.
type ReportCache struct {
	c   *Client
	ttl time.Duration
}

// NewReportCache creates a ReportCache. ttl bounds how long a report stays
// visible if cycles stop; zero keeps it forever.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	return &ReportCache{c: c, ttl: ttl}
}

// Name implements domain.ReportSink.
func (rc *ReportCache) Name() string { return "redis_cache" }

// Record stores r as the latest report and caches its quotes in one
// pipeline.
func (rc *ReportCache) Record(ctx context.Context, r *domain.CycleReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal report: %w", err)
	}

	pipe := rc.c.rdb.TxPipeline()
	pipe.Set(ctx, rc.c.key("report", "latest"), payload, rc.ttl)
	for _, q := range r.RetailQuotes {
		rc.setQuote(ctx, pipe, q)
	}
	for _, q := range r.VenueQuotes {
		rc.setQuote(ctx, pipe, q)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: record report %s: %w", r.ID, err)
	}
	return nil
}

// Latest returns the most recent report, or domain.ErrNotFound.
func (rc *ReportCache) Latest(ctx context.Context) (*domain.CycleReport, error) {
	payload, err := rc.c.rdb.Get(ctx, rc.c.key("report", "latest")).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: latest report: %w", err)
	}

	var r domain.CycleReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("redis: decode latest report: %w", err)
	}
	return &r, nil
}

// SetQuote caches a single quote.
func (rc *ReportCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	pipe := rc.c.rdb.Pipeline()
	rc.setQuote(ctx, pipe, q)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s/%s: %w", q.Source, q.Asset, err)
	}
	return nil
}

// GetQuote returns the cached quote for source and asset, or
// domain.ErrNotFound.
func (rc *ReportCache) GetQuote(ctx context.Context, source string, asset domain.Asset) (domain.PriceQuote, error) {
	vals, err := rc.c.rdb.HGetAll(ctx, rc.quoteKey(source, asset)).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote %s/%s: %w", source, asset, err)
	}
	if len(vals) == 0 {
		return domain.PriceQuote{}, domain.ErrNotFound
	}

	amount, err := decimal.NewFromString(vals["amount"])
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse quote amount %s/%s: %w", source, asset, err)
	}
	var ts time.Time
	if raw, ok := vals["ts"]; ok {
		ts, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.PriceQuote{}, fmt.Errorf("redis: parse quote ts %s/%s: %w", source, asset, err)
		}
	}

	return domain.PriceQuote{
		Asset:    asset,
		Currency: domain.Currency(vals["currency"]),
		Amount:   amount,
		Source:   source,
		At:       ts,
	}, nil
}

func (rc *ReportCache) quoteKey(source string, asset domain.Asset) string {
	return rc.c.key("quote", source, asset.String())
}

func (rc *ReportCache) setQuote(ctx context.Context, pipe redis.Pipeliner, q domain.PriceQuote) {
	key := rc.quoteKey(q.Source, q.Asset)
	pipe.HSet(ctx, key, map[string]any{
		"amount":   q.Amount.String(),
		"currency": q.Currency.String(),
		"ts":       q.At.UTC().Format(time.RFC3339Nano),
	})
	if rc.ttl > 0 {
		pipe.Expire(ctx, key, rc.ttl)
	}
}

var (
	_ domain.ReportSink   = (*ReportCache)(nil)
	_ domain.ReportReader = (*ReportCache)(nil)
	_ domain.QuoteCache   = (*ReportCache)(nil)
)
