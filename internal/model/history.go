package model

import "strings"

// StatusSold is the only status the liquidation engine writes.
const StatusSold = "sold"

// HistoryEntry records the liquidation of a quantity taken from a single lot.
// A sell order spanning several lots produces one entry per lot.
type HistoryEntry struct {
	ID              RecordID  `json:"id"`
	LotID           RecordID  `json:"lotId,omitempty"`
	Ticker          string    `json:"ticker"`
	Quantity        float64   `json:"quantity"`
	SalePrice       float64   `json:"salePrice"`
	CostBasisPrice  float64   `json:"avgPrice"`
	RealizedValue   NullFloat `json:"totalVal"`
	LiquidationDate Date      `json:"liquidationDate"`
	Status          string    `json:"status"`
	Type            string    `json:"type"`
	Broker          string    `json:"broker"`
	Currency        string    `json:"currency"`
}

// Normalize upper-cases the ticker and applies the default currency.
func (h *HistoryEntry) Normalize() {
	h.Ticker = NormalizeTicker(h.Ticker)
	if strings.TrimSpace(h.Currency) == "" {
		h.Currency = DefaultCurrency
	}
}

// CostBasis returns the acquisition cost of the liquidated quantity.
func (h HistoryEntry) CostBasis() float64 {
	return h.Quantity * h.CostBasisPrice
}

// LedgerSnapshot holds both persisted collections as read in the same storage epoch.
type LedgerSnapshot struct {
	Lots    []Lot
	History []HistoryEntry
}

// OpenQuantity returns the summed quantity of the ticker's lots.
func (s LedgerSnapshot) OpenQuantity(ticker string) float64 {
	var total float64
	for _, lot := range s.Lots {
		if lot.Ticker == ticker {
			total += lot.Quantity
		}
	}
	return total
}

// LotsFor returns the lots of the given ticker in stored order.
func (s LedgerSnapshot) LotsFor(ticker string) []Lot {
	lots := []Lot{}
	for _, lot := range s.Lots {
		if lot.Ticker == ticker {
			lots = append(lots, lot)
		}
	}
	return lots
}

// HistoryFor returns the history entries of the given ticker in stored order.
func (s LedgerSnapshot) HistoryFor(ticker string) []HistoryEntry {
	entries := []HistoryEntry{}
	for _, h := range s.History {
		if h.Ticker == ticker {
			entries = append(entries, h)
		}
	}
	return entries
}
