package model

import "strings"

// DefaultCurrency is applied to records that were stored without a currency.
const DefaultCurrency = "BRL"

// Lot is one discrete purchase of a variable-income asset.
// Lots are created by the contribution flow and only ever shrunk by a liquidation
// or grown back by a reversal. A lot at zero quantity is kept in the collection.
type Lot struct {
	ID              RecordID `json:"id"`
	Ticker          string   `json:"ticker"`
	Type            string   `json:"type"`
	Quantity        float64  `json:"quantity"`
	UnitCost        float64  `json:"avgPrice"`
	CurrentPrice    float64  `json:"currentPrice"`
	AcquisitionDate Date     `json:"dateInv"`
	Currency        string   `json:"currency"`
	Broker          string   `json:"broker"`
	Category        string   `json:"category"`
}

// Normalize upper-cases the ticker and applies the default currency.
func (l *Lot) Normalize() {
	l.Ticker = NormalizeTicker(l.Ticker)
	if strings.TrimSpace(l.Currency) == "" {
		l.Currency = DefaultCurrency
	}
}

// Invested returns quantity * unit cost.
func (l Lot) Invested() float64 {
	return l.Quantity * l.UnitCost
}

// MarketValue returns quantity * current price.
func (l Lot) MarketValue() float64 {
	return l.Quantity * l.CurrentPrice
}

// Class maps the free-form lot type into the closed set of asset classes.
func (l Lot) Class() AssetClass {
	return ClassifyAssetType(l.Type)
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
