package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// LotBuilder provides a fluent interface for creating test lots.
//
// Example usage:
//
//	// Simple creation with defaults
//	lot := testutil.NewLot().Build(t, db)
//
//	// Customized lot
//	lot := testutil.NewLot().
//	    WithTicker("PETR4").
//	    WithQuantity(100).
//	    WithUnitCost(20).
//	    WithAcquisitionDate(model.NewDate(2023, 1, 1)).
//	    Build(t, db)
type LotBuilder struct {
	lot model.Lot
}

// NewLot creates a LotBuilder with sensible defaults.
func NewLot() *LotBuilder {
	return &LotBuilder{lot: model.Lot{
		ID:              model.RecordID(MakeID()),
		Ticker:          MakeTicker("TEST"),
		Type:            "Ação",
		Quantity:        10,
		UnitCost:        10,
		CurrentPrice:    10,
		AcquisitionDate: model.NewDate(2024, 1, 2),
		Currency:        model.DefaultCurrency,
		Broker:          "Test Broker",
	}}
}

// WithID sets a custom ID.
func (b *LotBuilder) WithID(id string) *LotBuilder {
	b.lot.ID = model.RecordID(id)
	return b
}

// WithTicker sets the ticker.
func (b *LotBuilder) WithTicker(ticker string) *LotBuilder {
	b.lot.Ticker = ticker
	return b
}

// WithType sets the free-form asset type.
func (b *LotBuilder) WithType(assetType string) *LotBuilder {
	b.lot.Type = assetType
	return b
}

// WithQuantity sets the quantity.
func (b *LotBuilder) WithQuantity(quantity float64) *LotBuilder {
	b.lot.Quantity = quantity
	return b
}

// WithUnitCost sets the unit cost.
func (b *LotBuilder) WithUnitCost(cost float64) *LotBuilder {
	b.lot.UnitCost = cost
	return b
}

// WithCurrentPrice sets the current price.
func (b *LotBuilder) WithCurrentPrice(price float64) *LotBuilder {
	b.lot.CurrentPrice = price
	return b
}

// WithAcquisitionDate sets the acquisition date.
func (b *LotBuilder) WithAcquisitionDate(date model.Date) *LotBuilder {
	b.lot.AcquisitionDate = date
	return b
}

// WithCurrency sets the currency.
func (b *LotBuilder) WithCurrency(currency string) *LotBuilder {
	b.lot.Currency = currency
	return b
}

// WithCategory sets the category.
func (b *LotBuilder) WithCategory(category string) *LotBuilder {
	b.lot.Category = category
	return b
}

// Lot returns the lot without storing it.
func (b *LotBuilder) Lot() model.Lot {
	return b.lot
}

// Build appends the lot to the stored lot collection and returns it.
func (b *LotBuilder) Build(t *testing.T, db *sql.DB) model.Lot {
	t.Helper()

	ctx := context.Background()
	repo := NewTestLedgerRepository(t, db)

	lots, err := repo.LoadLots(ctx)
	if err != nil {
		t.Fatalf("Failed to load lots: %v", err)
	}
	if err := repo.SaveLots(ctx, append(lots, b.lot)); err != nil {
		t.Fatalf("Failed to create test lot: %v", err)
	}

	lot := b.lot
	lot.Normalize()
	return lot
}

// HistoryEntryBuilder provides a fluent interface for creating test history entries.
//
// Example usage:
//
//	entry := testutil.NewHistoryEntry().
//	    WithTicker("PETR4").
//	    WithQuantity(100).
//	    WithSalePrice(25).
//	    Build(t, db)
type HistoryEntryBuilder struct {
	entry model.HistoryEntry
}

// NewHistoryEntry creates a HistoryEntryBuilder with sensible defaults.
// The realized value is quantity * sale price unless set explicitly.
func NewHistoryEntry() *HistoryEntryBuilder {
	return &HistoryEntryBuilder{entry: model.HistoryEntry{
		ID:              model.RecordID(MakeID()),
		Ticker:          MakeTicker("TEST"),
		Quantity:        10,
		SalePrice:       12,
		CostBasisPrice:  10,
		RealizedValue:   model.Float(120),
		LiquidationDate: model.NewDate(2024, 6, 3),
		Status:          model.StatusSold,
		Type:            "Ação",
		Broker:          "Test Broker",
		Currency:        model.DefaultCurrency,
	}}
}

// WithID sets a custom ID.
func (b *HistoryEntryBuilder) WithID(id string) *HistoryEntryBuilder {
	b.entry.ID = model.RecordID(id)
	return b
}

// WithLotID records the lot the quantity was taken from.
func (b *HistoryEntryBuilder) WithLotID(id model.RecordID) *HistoryEntryBuilder {
	b.entry.LotID = id
	return b
}

// WithTicker sets the ticker.
func (b *HistoryEntryBuilder) WithTicker(ticker string) *HistoryEntryBuilder {
	b.entry.Ticker = ticker
	return b
}

// WithType sets the free-form asset type.
func (b *HistoryEntryBuilder) WithType(assetType string) *HistoryEntryBuilder {
	b.entry.Type = assetType
	return b
}

// WithQuantity sets the quantity and recomputes the realized value.
func (b *HistoryEntryBuilder) WithQuantity(quantity float64) *HistoryEntryBuilder {
	b.entry.Quantity = quantity
	b.entry.RealizedValue = model.Float(quantity * b.entry.SalePrice)
	return b
}

// WithSalePrice sets the sale price and recomputes the realized value.
func (b *HistoryEntryBuilder) WithSalePrice(price float64) *HistoryEntryBuilder {
	b.entry.SalePrice = price
	b.entry.RealizedValue = model.Float(b.entry.Quantity * price)
	return b
}

// WithCostBasisPrice sets the unit cost of the liquidated quantity.
func (b *HistoryEntryBuilder) WithCostBasisPrice(price float64) *HistoryEntryBuilder {
	b.entry.CostBasisPrice = price
	return b
}

// WithRealizedValue sets the realized value explicitly.
func (b *HistoryEntryBuilder) WithRealizedValue(value model.NullFloat) *HistoryEntryBuilder {
	b.entry.RealizedValue = value
	return b
}

// WithLiquidationDate sets the liquidation date.
func (b *HistoryEntryBuilder) WithLiquidationDate(date model.Date) *HistoryEntryBuilder {
	b.entry.LiquidationDate = date
	return b
}

// Entry returns the entry without storing it.
func (b *HistoryEntryBuilder) Entry() model.HistoryEntry {
	return b.entry
}

// Build appends the entry to the stored history as-is, keeping its ID.
func (b *HistoryEntryBuilder) Build(t *testing.T, db *sql.DB) model.HistoryEntry {
	t.Helper()

	ctx := context.Background()
	repo := NewTestLedgerRepository(t, db)

	history, err := repo.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if err := repo.SaveHistory(ctx, append(history, b.entry)); err != nil {
		t.Fatalf("Failed to create test history entry: %v", err)
	}

	entry := b.entry
	entry.Normalize()
	return entry
}

// Convenience functions

// CreateLot creates a lot for ticker with the given quantity, unit cost and acquisition date.
//
// Example usage:
//
//	lot := testutil.CreateLot(t, db, "PETR4", 100, 20, model.NewDate(2023, 1, 1))
func CreateLot(t *testing.T, db *sql.DB, ticker string, quantity, unitCost float64, date model.Date) model.Lot {
	t.Helper()
	return NewLot().
		WithTicker(ticker).
		WithQuantity(quantity).
		WithUnitCost(unitCost).
		WithCurrentPrice(unitCost).
		WithAcquisitionDate(date).
		Build(t, db)
}
