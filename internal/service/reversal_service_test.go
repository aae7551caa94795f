package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
	"github.com/ndewijer/Position-Ledger-Backend/internal/testutil"
)

// TestLedgerService_ReverseHistoryEntry tests undoing a single liquidation entry.
//
// WHY: A reversal must give back exactly what the sale took, to the lot it took it
// from, or the ledger drifts away from the user's real holdings.
func TestLedgerService_ReverseHistoryEntry(t *testing.T) {
	t.Run("round trip restores every originating lot", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		first := testutil.CreateLot(t, db, "ITUB4", 10, 10, model.NewDate(2023, 1, 1))
		second := testutil.CreateLot(t, db, "ITUB4", 5, 20, model.NewDate(2023, 6, 1))

		entries, err := svc.Liquidate(ctx, service.LiquidationOrder{Ticker: "ITUB4", Quantity: 12, SalePrice: 15})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}

		// Execute: undo the newest slice first, then the oldest
		for i := len(entries) - 1; i >= 0; i-- {
			if _, err := svc.ReverseHistoryEntry(ctx, entries[i].ID); err != nil {
				t.Fatalf("ReverseHistoryEntry(%s) returned unexpected error: %v", entries[i].ID, err)
			}
		}

		// Assert
		lots, err := svc.Lots(ctx, "ITUB4")
		if err != nil {
			t.Fatalf("Lots() returned unexpected error: %v", err)
		}
		want := map[model.RecordID]float64{first.ID: 10, second.ID: 5}
		for _, lot := range lots {
			if !approxEqual(lot.Quantity, want[lot.ID]) {
				t.Errorf("Lot %s quantity = %v, want %v", lot.ID, lot.Quantity, want[lot.ID])
			}
		}
		if len(lots) != 2 {
			t.Errorf("Expected no extra lots, got %d", len(lots))
		}

		history, _ := svc.History(ctx, "ITUB4")
		if len(history) != 0 {
			t.Errorf("Expected empty history, got %d entries", len(history))
		}
	})

	t.Run("falls back to the oldest lot of the ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		testutil.CreateLot(t, db, "BBDC4", 3, 15, model.NewDate(2023, 5, 1))
		oldest := testutil.CreateLot(t, db, "BBDC4", 2, 14, model.NewDate(2021, 5, 1))
		entry := testutil.NewHistoryEntry().WithTicker("BBDC4").WithQuantity(4).WithLotID("gone").Build(t, db)

		restored, err := svc.ReverseHistoryEntry(ctx, entry.ID)
		if err != nil {
			t.Fatalf("ReverseHistoryEntry() returned unexpected error: %v", err)
		}

		if restored.ID != oldest.ID || restored.Quantity != 6 {
			t.Errorf("Expected oldest lot restored to 6, got %+v", restored)
		}
	})

	t.Run("reconstructs a lot when the ticker has none left", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		entry := testutil.NewHistoryEntry().
			WithTicker("CIEL3").
			WithQuantity(7).
			WithSalePrice(4).
			WithCostBasisPrice(3).
			WithLiquidationDate(model.NewDate(2024, 2, 2)).
			Build(t, db)

		restored, err := svc.ReverseHistoryEntry(ctx, entry.ID)
		if err != nil {
			t.Fatalf("ReverseHistoryEntry() returned unexpected error: %v", err)
		}

		if restored.ID == "" {
			t.Error("Expected reconstructed lot to get an ID")
		}
		if restored.Ticker != "CIEL3" || restored.Quantity != 7 || restored.UnitCost != 3 {
			t.Errorf("Unexpected reconstructed lot %+v", restored)
		}
		if restored.AcquisitionDate.String() != "2024-02-02" {
			t.Errorf("Expected acquisition date 2024-02-02, got %s", restored.AcquisitionDate)
		}

		lots, _ := svc.Lots(ctx, "CIEL3")
		if len(lots) != 1 || lots[0].Quantity != 7 {
			t.Errorf("Expected one stored lot with quantity 7, got %+v", lots)
		}
	})

	t.Run("unknown id fails with not found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		testutil.NewHistoryEntry().Build(t, db)

		_, err := svc.ReverseHistoryEntry(context.Background(), "does-not-exist")
		if !errors.Is(err, apperrors.ErrHistoryEntryNotFound) {
			t.Errorf("Expected ErrHistoryEntryNotFound, got %v", err)
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("Expected error to match ErrNotFound, got %v", err)
		}
	})

	t.Run("declined confirmation leaves the ledger untouched", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		ctx := context.Background()
		lot := testutil.CreateLot(t, db, "SANB11", 10, 30, model.NewDate(2023, 1, 1))
		entry := testutil.NewHistoryEntry().WithTicker("SANB11").WithLotID(lot.ID).WithQuantity(2).Build(t, db)

		var asked model.HistoryEntry
		notified := false
		svc := testutil.NewTestLedgerService(t, db, service.WithHooks(service.Hooks{
			ConfirmReversal: func(e model.HistoryEntry) bool {
				asked = e
				return false
			},
			OnLedgerChanged: func() { notified = true },
		}))

		_, err := svc.ReverseHistoryEntry(ctx, entry.ID)
		if !errors.Is(err, apperrors.ErrReversalCancelled) {
			t.Fatalf("Expected ErrReversalCancelled, got %v", err)
		}
		if asked.ID != entry.ID {
			t.Errorf("Expected confirmation for %s, got %s", entry.ID, asked.ID)
		}
		if notified {
			t.Error("Expected no change notification for a cancelled reversal")
		}

		lots, _ := svc.Lots(ctx, "SANB11")
		if lots[0].Quantity != 10 {
			t.Errorf("Expected lot quantity 10, got %v", lots[0].Quantity)
		}
		history, _ := svc.History(ctx, "SANB11")
		if len(history) != 1 {
			t.Errorf("Expected entry to remain, got %d entries", len(history))
		}
	})

	t.Run("numeric ids from older documents can be reversed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		testutil.WriteRawDocument(t, db, "local_history",
			`[{"id":1712345678901,"ticker":"bova11","quantity":1,"salePrice":120,"avgPrice":100,"totalVal":120,"liquidationDate":"2024-04-05","status":"sold","type":"ETF"}]`)

		restored, err := svc.ReverseHistoryEntry(context.Background(), "1712345678901")
		if err != nil {
			t.Fatalf("ReverseHistoryEntry() returned unexpected error: %v", err)
		}
		if restored.Ticker != "BOVA11" || restored.Currency != model.DefaultCurrency {
			t.Errorf("Expected normalized reconstructed lot, got %+v", restored)
		}
	})
}
