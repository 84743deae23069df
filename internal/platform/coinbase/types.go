package coinbase

import "github.com/shopspring/decimal"

// SourceName labels quotes produced by this client.
const SourceName = "coinbase"

// DefaultAPIVersion is sent as CB-VERSION on every request.
const DefaultAPIVersion = "2017-08-07"

type money struct {
	Amount   decimal.NullDecimal `json:"amount"`
	Currency string              `json:"currency"`
}

type priceResponse struct {
	Data money `json:"data"`
}

type apiError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type errorResponse struct {
	Errors []apiError `json:"errors"`
}

// Limit is one purchase limit window of a payment method.
type Limit struct {
	PeriodInDays int   `json:"period_in_days"`
	Total        money `json:"total"`
	Remaining    money `json:"remaining"`
}

// PaymentMethod is a funding source linked to the retail account.
type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Limits   struct {
		Buy []Limit `json:"buy"`
	} `json:"limits"`
}

type paymentMethodsResponse struct {
	Data []PaymentMethod `json:"data"`
}
