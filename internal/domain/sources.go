package domain

import "context"

// VenuePriceSource returns the last traded price of an asset on the trading
// venue the watcher sells into.
type VenuePriceSource interface {
	LastPrice(ctx context.Context, asset Asset) (PriceQuote, error)
}

// RetailPriceSource returns retail on-ramp buy prices and the account's
// remaining purchase allowance.
type RetailPriceSource interface {
	BuyPrice(ctx context.Context, asset Asset, currency Currency) (PriceQuote, error)
	RemainingAllowance(ctx context.Context, paymentMethodIndex int) (PurchaseAllowance, error)
}

// ReferencePriceSource returns index prices for one asset in several fiat
// currencies at once.
type ReferencePriceSource interface {
	Prices(ctx context.Context, asset Asset, currencies []Currency) (map[Currency]PriceQuote, error)
}

// Notifier delivers a short alert. Implementations decide which channels an
// event reaches.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Notification event types.
const (
	EventVarianceAlert = "variance_alert"
	EventCycleFailed   = "cycle_failed"
)
