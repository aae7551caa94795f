package service_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service/mocks"
	"github.com/ndewijer/Position-Ledger-Backend/internal/testutil"
)

const tolerance = 1e-6

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// TestLedgerService_Liquidate_FIFO tests the oldest-first allocation across lots.
//
// WHY: The cost basis recorded on each history entry depends entirely on which lot
// a slice was taken from. Consuming lots out of order silently misstates profit.
func TestLedgerService_Liquidate_FIFO(t *testing.T) {
	t.Run("consumes the oldest lot first and splits across lots", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)
		ctx := context.Background()

		// Inserted newest first to make sure stored order is not used
		newer := testutil.CreateLot(t, db, "ITSA4", 5, 20, model.NewDate(2023, 6, 1))
		older := testutil.CreateLot(t, db, "ITSA4", 10, 10, model.NewDate(2023, 1, 1))

		// Execute
		entries, err := svc.Liquidate(ctx, service.LiquidationOrder{
			Ticker:    "ITSA4",
			Quantity:  12,
			SalePrice: 15,
			Date:      model.NewDate(2024, 3, 1),
		})

		// Assert
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("Expected 2 history entries, got %d", len(entries))
		}

		if entries[0].Quantity != 10 || entries[0].CostBasisPrice != 10 || entries[0].LotID != older.ID {
			t.Errorf("First entry = %+v, want 10 units at cost 10 from lot %s", entries[0], older.ID)
		}
		if entries[1].Quantity != 2 || entries[1].CostBasisPrice != 20 || entries[1].LotID != newer.ID {
			t.Errorf("Second entry = %+v, want 2 units at cost 20 from lot %s", entries[1], newer.ID)
		}
		for _, e := range entries {
			if e.ID == "" {
				t.Error("Expected every committed entry to have an ID")
			}
			if e.Status != model.StatusSold {
				t.Errorf("Expected status %q, got %q", model.StatusSold, e.Status)
			}
			if e.SalePrice != 15 {
				t.Errorf("Expected sale price 15, got %v", e.SalePrice)
			}
		}

		lots, err := svc.Lots(ctx, "ITSA4")
		if err != nil {
			t.Fatalf("Lots() returned unexpected error: %v", err)
		}
		for _, lot := range lots {
			switch lot.ID {
			case older.ID:
				if lot.Quantity != 0 {
					t.Errorf("Expected older lot to be kept at quantity 0, got %v", lot.Quantity)
				}
			case newer.ID:
				if lot.Quantity != 3 {
					t.Errorf("Expected newer lot quantity 3, got %v", lot.Quantity)
				}
			}
		}
		if len(lots) != 2 {
			t.Errorf("Expected exhausted lot to be retained, got %d lots", len(lots))
		}
	})

	t.Run("breaks acquisition date ties by lot id", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		date := model.NewDate(2023, 1, 1)
		testutil.NewLot().WithID("b").WithTicker("BBAS3").WithQuantity(5).WithUnitCost(30).WithAcquisitionDate(date).Build(t, db)
		testutil.NewLot().WithID("a").WithTicker("BBAS3").WithQuantity(5).WithUnitCost(25).WithAcquisitionDate(date).Build(t, db)

		entries, err := svc.Liquidate(context.Background(), service.LiquidationOrder{
			Ticker: "BBAS3", Quantity: 3, SalePrice: 40,
		})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}

		if len(entries) != 1 || entries[0].LotID != "a" {
			t.Errorf("Expected a single entry from lot a, got %+v", entries)
		}
	})

	t.Run("allocates total costs proportionally", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		testutil.CreateLot(t, db, "WEGE3", 30, 10, model.NewDate(2022, 1, 1))
		testutil.CreateLot(t, db, "WEGE3", 10, 10, model.NewDate(2022, 2, 1))

		entries, err := svc.Liquidate(context.Background(), service.LiquidationOrder{
			Ticker: "WEGE3", Quantity: 40, SalePrice: 12, TotalCosts: 8,
		})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}

		// 30/40 * 8 = 6 and 10/40 * 8 = 2
		if !approxEqual(entries[0].RealizedValue.Float64, 30*12-6) {
			t.Errorf("Expected first realized value 354, got %v", entries[0].RealizedValue.Float64)
		}
		if !approxEqual(entries[1].RealizedValue.Float64, 10*12-2) {
			t.Errorf("Expected second realized value 118, got %v", entries[1].RealizedValue.Float64)
		}
	})

	t.Run("lowercase ticker is normalized", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLedgerService(t, db)

		testutil.CreateLot(t, db, "VALE3", 10, 60, model.NewDate(2022, 1, 1))

		entries, err := svc.Liquidate(context.Background(), service.LiquidationOrder{
			Ticker: " vale3 ", Quantity: 1, SalePrice: 70,
		})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}
		if entries[0].Ticker != "VALE3" {
			t.Errorf("Expected ticker VALE3, got %q", entries[0].Ticker)
		}
	})
}

// TestLedgerService_Liquidate_FullExit tests selling a whole position and its
// aggregated view afterwards.
//
// WHY: Once every lot is at zero the position's invested capital can only be
// rebuilt from the history. Without it the profit percentage of a closed position
// would be lost or become a division by zero.
func TestLedgerService_Liquidate_FullExit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)
	ctx := context.Background()

	testutil.CreateLot(t, db, "PETR4", 100, 20, model.NewDate(2023, 1, 1))

	entries, err := svc.Liquidate(ctx, service.LiquidationOrder{
		Ticker:     "PETR4",
		Quantity:   100,
		SalePrice:  25,
		TotalCosts: 10,
		Date:       model.NewDate(2024, 1, 15),
	})
	if err != nil {
		t.Fatalf("Liquidate() returned unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Quantity != 100 || entries[0].SalePrice != 25 {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
	if !approxEqual(entries[0].RealizedValue.Float64, 2490) {
		t.Errorf("Expected realized value 2490, got %v", entries[0].RealizedValue.Float64)
	}

	detail, err := svc.Position(ctx, "PETR4")
	if err != nil {
		t.Fatalf("Position() returned unexpected error: %v", err)
	}

	p := detail.Position
	if !p.Exhausted {
		t.Error("Expected position to be exhausted")
	}
	if p.Quantity != 0 {
		t.Errorf("Expected quantity 0, got %v", p.Quantity)
	}
	if p.Invested != 2000 {
		t.Errorf("Expected invested 2000, got %v", p.Invested)
	}
	if p.CurrentValue != 0 {
		t.Errorf("Expected current value 0, got %v", p.CurrentValue)
	}
	if p.RealizedValue != 2490 {
		t.Errorf("Expected realized value 2490, got %v", p.RealizedValue)
	}
	if p.Profit != 490 {
		t.Errorf("Expected profit 490, got %v", p.Profit)
	}
	if p.ProfitPercent != 24.5 {
		t.Errorf("Expected profit percent 24.5, got %v", p.ProfitPercent)
	}
}

// TestLedgerService_Liquidate_Validation tests the preconditions of a sale.
//
// WHY: Overselling a position would drive quantities negative and fabricate history.
// The tolerance must absorb float rounding but nothing more.
func TestLedgerService_Liquidate_Validation(t *testing.T) {
	setup := func(t *testing.T) *service.LedgerService {
		t.Helper()
		db := testutil.SetupTestDB(t)
		testutil.CreateLot(t, db, "TAEE11", 10.5, 30, model.NewDate(2023, 1, 1))
		testutil.CreateLot(t, db, "TAEE11", 4.25, 32, model.NewDate(2023, 2, 1))
		return testutil.NewTestLedgerService(t, db)
	}

	t.Run("selling the full open quantity succeeds", func(t *testing.T) {
		svc := setup(t)
		ctx := context.Background()

		_, err := svc.Liquidate(ctx, service.LiquidationOrder{Ticker: "TAEE11", Quantity: 14.75, SalePrice: 35})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}

		lots, _ := svc.Lots(ctx, "TAEE11")
		var open float64
		for _, lot := range lots {
			open += lot.Quantity
		}
		if open != 0 {
			t.Errorf("Expected no open quantity, got %v", open)
		}
	})

	t.Run("selling within the tolerance above the open quantity succeeds", func(t *testing.T) {
		svc := setup(t)

		_, err := svc.Liquidate(context.Background(), service.LiquidationOrder{Ticker: "TAEE11", Quantity: 14.75005, SalePrice: 35})
		if err != nil {
			t.Fatalf("Liquidate() returned unexpected error: %v", err)
		}
	})

	tests := []struct {
		name    string
		order   service.LiquidationOrder
		wantErr error
	}{
		{
			name:    "more than open plus tolerance",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: 14.751, SalePrice: 35},
			wantErr: apperrors.ErrInvalidQuantity,
		},
		{
			name:    "zero quantity",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: 0, SalePrice: 35},
			wantErr: apperrors.ErrInvalidQuantity,
		},
		{
			name:    "negative quantity",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: -1, SalePrice: 35},
			wantErr: apperrors.ErrInvalidQuantity,
		},
		{
			name:    "NaN quantity",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: math.NaN(), SalePrice: 35},
			wantErr: apperrors.ErrInvalidQuantity,
		},
		{
			name:    "negative sale price",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: 1, SalePrice: -1},
			wantErr: apperrors.ErrInvalidPrice,
		},
		{
			name:    "negative costs",
			order:   service.LiquidationOrder{Ticker: "TAEE11", Quantity: 1, SalePrice: 1, TotalCosts: -2},
			wantErr: apperrors.ErrInvalidPrice,
		},
		{
			name:    "unknown ticker",
			order:   service.LiquidationOrder{Ticker: "XPTO3", Quantity: 1, SalePrice: 1},
			wantErr: apperrors.ErrNotFound,
		},
		{
			name:    "empty ticker",
			order:   service.LiquidationOrder{Ticker: "  ", Quantity: 1, SalePrice: 1},
			wantErr: apperrors.ErrInvalidTicker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := setup(t)
			ctx := context.Background()

			_, err := svc.Liquidate(ctx, tt.order)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Liquidate() error = %v, want %v", err, tt.wantErr)
			}

			history, _ := svc.History(ctx, "")
			if len(history) != 0 {
				t.Errorf("Expected no history after a rejected sale, got %d entries", len(history))
			}
		})
	}
}

// TestLedgerService_Liquidate_Hooks tests the change notification contract.
func TestLedgerService_Liquidate_Hooks(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.CreateLot(t, db, "KNRI11", 10, 150, model.NewDate(2023, 1, 1))

	calls := 0
	var svc *service.LedgerService
	svc = testutil.NewTestLedgerService(t, db,
		service.WithHooks(service.Hooks{OnLedgerChanged: func() {
			calls++
			// Reading from the hook must not deadlock
			if _, err := svc.Positions(context.Background()); err != nil {
				t.Errorf("Positions() from hook returned error: %v", err)
			}
		}}),
		service.WithClock(func() time.Time { return time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC) }),
	)

	entries, err := svc.Liquidate(context.Background(), service.LiquidationOrder{Ticker: "KNRI11", Quantity: 1, SalePrice: 160})
	if err != nil {
		t.Fatalf("Liquidate() returned unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected OnLedgerChanged to be called once, got %d", calls)
	}
	if got := entries[0].LiquidationDate.String(); got != "2024-05-06" {
		t.Errorf("Expected default liquidation date 2024-05-06, got %s", got)
	}

	_, err = svc.Liquidate(context.Background(), service.LiquidationOrder{Ticker: "KNRI11", Quantity: 100, SalePrice: 160})
	if err == nil {
		t.Fatal("Expected oversell to fail")
	}
	if calls != 1 {
		t.Errorf("Expected no notification for a failed sale, got %d calls", calls)
	}
}

// TestLedgerService_Liquidate_ExhaustedWithinTolerance tests a sale smaller than the
// tolerance against a ticker whose lots are all at zero.
//
// WHY: Such a sale would consume nothing. Committing it would report an empty
// liquidation as a successful mutation.
func TestLedgerService_Liquidate_ExhaustedWithinTolerance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	testutil.NewLot().WithTicker("OIBR3").WithQuantity(0).Build(t, db)

	calls := 0
	svc := testutil.NewTestLedgerService(t, db,
		service.WithHooks(service.Hooks{OnLedgerChanged: func() { calls++ }}))

	_, err := svc.Liquidate(context.Background(), service.LiquidationOrder{Ticker: "OIBR3", Quantity: 0.00005, SalePrice: 1})

	if !errors.Is(err, apperrors.ErrInvalidQuantity) {
		t.Errorf("Expected ErrInvalidQuantity, got %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no change notification, got %d", calls)
	}
	if raw := testutil.ReadRawDocument(t, db, "local_history"); raw != "" && raw != "[]" {
		t.Errorf("Expected no history written, got %s", raw)
	}
}

// TestLedgerService_Liquidate_PersistenceFailure tests that a rejected commit is
// surfaced and nothing is reported as sold.
//
// WHY: Reporting success after a failed write would show the user a sale that
// does not exist on disk.
func TestLedgerService_Liquidate_PersistenceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLedgerStore(ctrl)

	lot := testutil.NewLot().WithTicker("MGLU3").WithQuantity(50).Lot()
	store.EXPECT().LoadSnapshot(gomock.Any()).Return(model.LedgerSnapshot{Lots: []model.Lot{lot}}, nil)
	store.EXPECT().
		AppendHistoryEntries(gomock.Any(), gomock.Any(), gomock.Len(1)).
		Return(nil, apperrors.ErrPersistenceFailure)

	notified := false
	svc := service.NewLedgerService(store, logger.Discard(),
		service.WithHooks(service.Hooks{OnLedgerChanged: func() { notified = true }}))

	entries, err := svc.Liquidate(context.Background(), service.LiquidationOrder{Ticker: "MGLU3", Quantity: 5, SalePrice: 3})
	if !errors.Is(err, apperrors.ErrPersistenceFailure) {
		t.Fatalf("Liquidate() error = %v, want ErrPersistenceFailure", err)
	}
	if entries != nil {
		t.Errorf("Expected no entries, got %+v", entries)
	}
	if notified {
		t.Error("Expected no change notification after a failed commit")
	}
}

// TestLedgerService_Liquidate_ReloadsBeforeMutating tests that every sale plans
// against freshly loaded state rather than a cached copy.
func TestLedgerService_Liquidate_ReloadsBeforeMutating(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLedgerService(t, db)
	ctx := context.Background()

	testutil.CreateLot(t, db, "EGIE3", 5, 40, model.NewDate(2023, 1, 1))
	if _, err := svc.Positions(ctx); err != nil {
		t.Fatalf("Positions() returned unexpected error: %v", err)
	}

	// Written behind the service's back
	testutil.CreateLot(t, db, "EGIE3", 5, 42, model.NewDate(2023, 2, 1))

	if _, err := svc.Liquidate(ctx, service.LiquidationOrder{Ticker: "EGIE3", Quantity: 8, SalePrice: 45}); err != nil {
		t.Fatalf("Liquidate() returned unexpected error: %v", err)
	}
}
