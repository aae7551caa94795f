package service

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"pgregory.net/rapid"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

func TestPlanLiquidation(t *testing.T) {
	lots := []model.Lot{
		{ID: "1", Ticker: "ABEV3", Quantity: 10, UnitCost: 10, AcquisitionDate: model.NewDate(2023, 1, 1)},
		{ID: "2", Ticker: "OTHER", Quantity: 99, UnitCost: 1, AcquisitionDate: model.NewDate(2020, 1, 1)},
		{ID: "3", Ticker: "ABEV3", Quantity: 0, UnitCost: 12, AcquisitionDate: model.NewDate(2022, 1, 1)},
		{ID: "4", Ticker: "ABEV3", Quantity: 5, UnitCost: 20, AcquisitionDate: model.NewDate(2023, 6, 1)},
	}

	t.Run("does not touch the input or other tickers", func(t *testing.T) {
		plan, err := planLiquidation(lots, LiquidationOrder{Ticker: "ABEV3", Quantity: 12, SalePrice: 15}, 1e-4)
		if err != nil {
			t.Fatalf("planLiquidation() returned unexpected error: %v", err)
		}

		if lots[0].Quantity != 10 || lots[3].Quantity != 5 {
			t.Error("Expected input lots to be left unchanged")
		}
		if len(plan.lots) != len(lots) {
			t.Fatalf("Expected %d planned lots, got %d", len(lots), len(plan.lots))
		}
		if plan.lots[1].Quantity != 99 {
			t.Errorf("Expected other ticker untouched, got %v", plan.lots[1].Quantity)
		}
		if plan.lots[0].Quantity != 0 || plan.lots[3].Quantity != 3 {
			t.Errorf("Unexpected planned quantities %v and %v", plan.lots[0].Quantity, plan.lots[3].Quantity)
		}
		if len(plan.entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(plan.entries))
		}
		for _, e := range plan.entries {
			if e.ID != "" {
				t.Errorf("Expected planned entries without IDs, got %q", e.ID)
			}
		}
	})

	t.Run("zero quantity lots are skipped", func(t *testing.T) {
		plan, err := planLiquidation(lots, LiquidationOrder{Ticker: "ABEV3", Quantity: 1, SalePrice: 15}, 1e-4)
		if err != nil {
			t.Fatalf("planLiquidation() returned unexpected error: %v", err)
		}
		if plan.entries[0].LotID != "1" {
			t.Errorf("Expected lot 1 to be consumed, got %s", plan.entries[0].LotID)
		}
	})

	t.Run("ticker with only exhausted lots cannot be sold", func(t *testing.T) {
		exhausted := []model.Lot{{ID: "1", Ticker: "OIBR3", Quantity: 0}}
		_, err := planLiquidation(exhausted, LiquidationOrder{Ticker: "OIBR3", Quantity: 1}, 1e-4)
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("Expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("sale within the tolerance of exhausted lots is rejected", func(t *testing.T) {
		exhausted := []model.Lot{{ID: "1", Ticker: "OIBR3", Quantity: 0}}
		_, err := planLiquidation(exhausted, LiquidationOrder{Ticker: "OIBR3", Quantity: 0.00005}, 1e-4)
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("Expected ErrInvalidQuantity, got %v", err)
		}
	})

	t.Run("sale that would produce no entries is rejected", func(t *testing.T) {
		plan, err := planLiquidation(lots, LiquidationOrder{Ticker: "ABEV3", Quantity: 0.00005, SalePrice: 15}, 1e-4)
		if !errors.Is(err, apperrors.ErrInvalidQuantity) {
			t.Errorf("Expected ErrInvalidQuantity, got %v with %d entries", err, len(plan.entries))
		}
	})

	t.Run("realized value may be negative", func(t *testing.T) {
		plan, err := planLiquidation(lots, LiquidationOrder{Ticker: "ABEV3", Quantity: 1, SalePrice: 0, TotalCosts: 5}, 1e-4)
		if err != nil {
			t.Fatalf("planLiquidation() returned unexpected error: %v", err)
		}
		if got := plan.entries[0].RealizedValue.Float64; got != -5 {
			t.Errorf("Expected realized value -5, got %v", got)
		}
	})
}

// TestPlanLiquidation_Conservation checks that, for any set of lots and any
// admissible sale, the sold quantity plus the remaining open quantity equals the
// quantity held before the sale.
func TestPlanLiquidation_Conservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "lots")
		lots := make([]model.Lot, n)
		var open float64
		for i := range lots {
			// Whole cents keep the generated quantities representative of real holdings
			qty := float64(rapid.IntRange(0, 100000).Draw(t, fmt.Sprintf("qty%d", i))) / 100
			lots[i] = model.Lot{
				ID:              model.RecordID(fmt.Sprintf("lot-%d", i)),
				Ticker:          "HGLG11",
				Quantity:        qty,
				UnitCost:        rapid.Float64Range(0, 500).Draw(t, fmt.Sprintf("cost%d", i)),
				AcquisitionDate: model.NewDate(2020, 1, 1+rapid.IntRange(0, 30).Draw(t, fmt.Sprintf("day%d", i))),
			}
			open += qty
		}
		if open <= 0 {
			t.Skip("no open quantity")
		}

		sell := rapid.Float64Range(0.01, open).Draw(t, "sell")
		plan, err := planLiquidation(lots, LiquidationOrder{Ticker: "HGLG11", Quantity: sell, SalePrice: 10, TotalCosts: 1}, 1e-4)
		if err != nil {
			t.Fatalf("planLiquidation() returned unexpected error: %v", err)
		}

		var sold, remaining float64
		for _, e := range plan.entries {
			if e.Quantity <= 0 {
				t.Fatalf("entry with non-positive quantity %v", e.Quantity)
			}
			sold += e.Quantity
		}
		for _, lot := range plan.lots {
			if lot.Quantity < 0 {
				t.Fatalf("lot %s went negative: %v", lot.ID, lot.Quantity)
			}
			remaining += lot.Quantity
		}

		if math.Abs(sold-sell) > 1e-4 {
			t.Fatalf("sold %v, want %v", sold, sell)
		}
		if math.Abs(sold+remaining-open) > 1e-6 {
			t.Fatalf("sold %v + remaining %v != open %v", sold, remaining, open)
		}
	})
}
