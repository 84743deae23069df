package btcmarkets

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceName labels quotes produced by this client.
const SourceName = "btcmarkets"

// tickResponse is the body of GET /market/{ASSET}/{CCY}/tick.
type tickResponse struct {
	BestBid    decimal.NullDecimal `json:"bestBid"`
	BestAsk    decimal.NullDecimal `json:"bestAsk"`
	LastPrice  decimal.NullDecimal `json:"lastPrice"`
	Currency   string              `json:"currency"`
	Instrument string              `json:"instrument"`
	Timestamp  int64               `json:"timestamp"`
	Volume24h  decimal.NullDecimal `json:"volume24h"`
}

// apiStatus is embedded in every authenticated response.
type apiStatus struct {
	Success      *bool  `json:"success"`
	ErrorCode    *int   `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type apiOrder struct {
	ID           int64      `json:"id"`
	Currency     string     `json:"currency"`
	Instrument   string     `json:"instrument"`
	OrderSide    string     `json:"orderSide"`
	OrderType    string     `json:"ordertype"`
	CreationTime int64      `json:"creationTime"`
	Status       string     `json:"status"`
	Price        int64      `json:"price"`
	Volume       int64      `json:"volume"`
	OpenVolume   int64      `json:"openVolume"`
	Trades       []apiTrade `json:"trades"`
}

type apiTrade struct {
	ID           int64  `json:"id"`
	CreationTime int64  `json:"creationTime"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Volume       int64  `json:"volume"`
	Fee          int64  `json:"fee"`
}

type orderHistoryResponse struct {
	apiStatus
	Orders []apiOrder `json:"orders"`
}

// orderHistoryRequest is the signed body of POST /order/history. Field order
// matters: the signature covers the exact bytes sent.
type orderHistoryRequest struct {
	Currency   string `json:"currency"`
	Instrument string `json:"instrument"`
	Limit      int    `json:"limit"`
	Since      int64  `json:"since"`
}

// Order is one historical venue order with amounts in natural units.
type Order struct {
	ID         int64
	Currency   string
	Instrument string
	Side       string
	Type       string
	Status     string
	Price      decimal.Decimal
	Volume     decimal.Decimal
	OpenVolume decimal.Decimal
	CreatedAt  time.Time
	Trades     []Trade
}

// Trade is a fill belonging to an Order.
type Trade struct {
	ID        int64
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Fee       decimal.Decimal
	CreatedAt time.Time
}

// fromVenueUnits converts the venue's integer amounts (1e-8 units).
func fromVenueUnits(n int64) decimal.Decimal {
	return decimal.New(n, -8)
}

func (o apiOrder) toOrder() Order {
	out := Order{
		ID:         o.ID,
		Currency:   o.Currency,
		Instrument: o.Instrument,
		Side:       o.OrderSide,
		Type:       o.OrderType,
		Status:     o.Status,
		Price:      fromVenueUnits(o.Price),
		Volume:     fromVenueUnits(o.Volume),
		OpenVolume: fromVenueUnits(o.OpenVolume),
		CreatedAt:  time.UnixMilli(o.CreationTime).UTC(),
	}
	for _, t := range o.Trades {
		out.Trades = append(out.Trades, Trade{
			ID:        t.ID,
			Price:     fromVenueUnits(t.Price),
			Volume:    fromVenueUnits(t.Volume),
			Fee:       fromVenueUnits(t.Fee),
			CreatedAt: time.UnixMilli(t.CreationTime).UTC(),
		})
	}
	return out
}
