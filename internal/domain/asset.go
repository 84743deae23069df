package domain

import (
	"fmt"
	"strings"
)

// Asset is one of the cryptocurrencies the watcher knows how to price.
type Asset string

const (
	BTC Asset = "BTC"
	ETH Asset = "ETH"
	LTC Asset = "LTC"
	BCH Asset = "BCH"
)

// AllAssets returns every supported asset in report order.
func AllAssets() []Asset {
	return []Asset{BTC, ETH, LTC, BCH}
}

// Valid reports whether a is a member of the supported set.
func (a Asset) Valid() bool {
	switch a {
	case BTC, ETH, LTC, BCH:
		return true
	}
	return false
}

func (a Asset) String() string { return string(a) }

// ParseAsset converts a case-insensitive symbol into an Asset.
func ParseAsset(s string) (Asset, error) {
	a := Asset(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown asset %q", ErrConfig, s)
	}
	return a, nil
}

// Currency is a fiat currency code.
type Currency string

const (
	AUD Currency = "AUD"
	USD Currency = "USD"
	GBP Currency = "GBP"
)

// AllCurrencies returns every supported fiat currency in report order.
func AllCurrencies() []Currency {
	return []Currency{AUD, USD, GBP}
}

// Valid reports whether c is a member of the supported set.
func (c Currency) Valid() bool {
	switch c {
	case AUD, USD, GBP:
		return true
	}
	return false
}

func (c Currency) String() string { return string(c) }

// Symbol returns the sign used when printing amounts in c.
func (c Currency) Symbol() string {
	if c == GBP {
		return "£"
	}
	return "$"
}

// ParseCurrency converts a case-insensitive code into a Currency.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown currency %q", ErrConfig, s)
	}
	return c, nil
}
