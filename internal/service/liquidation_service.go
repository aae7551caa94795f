package service

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// LiquidationOrder describes a sale of part or all of a ticker's open position.
type LiquidationOrder struct {
	Ticker     string
	Quantity   float64
	SalePrice  float64
	TotalCosts float64
	Date       model.Date // zero means today
}

// liquidationPlan is the full set of mutations a liquidation will commit.
type liquidationPlan struct {
	lots    []model.Lot          // the whole lot collection after the sale
	entries []model.HistoryEntry // one entry per consumed lot, without IDs
}

// Liquidate sells order.Quantity units of the ticker, consuming its open lots
// oldest first.
//
// The lots and history are reloaded from the store under the write lock, the sale
// is planned entirely in memory, and the updated lots plus the new history entries
// are committed in one durable transaction. Either everything is written or nothing is.
//
// Returns the committed history entries, one per contributing lot, with their IDs.
// Fails with ErrInvalidQuantity when the quantity is not positive, exceeds the open
// position by more than the tolerance, or would consume nothing, ErrPositionNotFound when the ticker has no lots,
// and ErrPersistenceFailure when the store rejects the commit.
func (s *LedgerService) Liquidate(ctx context.Context, order LiquidationOrder) ([]model.HistoryEntry, error) {
	order.Ticker = model.NormalizeTicker(order.Ticker)
	if order.Ticker == "" {
		return nil, apperrors.ErrInvalidTicker
	}
	if !isFinite(order.SalePrice) || order.SalePrice < 0 {
		return nil, fmt.Errorf("%w: sale price must be a non-negative number", apperrors.ErrInvalidPrice)
	}
	if !isFinite(order.TotalCosts) || order.TotalCosts < 0 {
		return nil, fmt.Errorf("%w: total costs must be a non-negative number", apperrors.ErrInvalidPrice)
	}
	if order.Date.IsZero() {
		order.Date = model.DateOf(s.now())
	}

	entries, err := s.liquidate(ctx, order)
	if err != nil {
		return nil, err
	}

	s.notifyChanged()
	return entries, nil
}

func (s *LedgerService) liquidate(ctx context.Context, order LiquidationOrder) ([]model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.reload(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := planLiquidation(snapshot.Lots, order, s.epsilon)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.AppendHistoryEntries(ctx, plan.lots, plan.entries)
	if err != nil {
		return nil, err
	}
	s.forgetReads()

	s.logger.WithFields(logrus.Fields{
		"ticker":    order.Ticker,
		"quantity":  order.Quantity,
		"salePrice": order.SalePrice,
		"entries":   len(entries),
	}).Info("liquidated position")

	return entries, nil
}

// planLiquidation allocates the order across the ticker's open lots in acquisition
// order (ties broken by lot ID) without touching storage.
//
// Each consumed lot yields one history entry carrying the lot's unit cost as cost
// basis and a proportional share of the order's total costs:
//
//	allocatedCosts = takeQty / order.Quantity * order.TotalCosts
//	realizedValue  = takeQty * order.SalePrice - allocatedCosts
//
// Allocation stops once the unallocated remainder is within epsilon; lots beyond
// that point are left untouched. Consumed lots are clamped at zero and kept.
func planLiquidation(lots []model.Lot, order LiquidationOrder, epsilon float64) (liquidationPlan, error) {
	if !isFinite(order.Quantity) || order.Quantity <= 0 {
		return liquidationPlan{}, fmt.Errorf("%w: quantity must be positive, got %v", apperrors.ErrInvalidQuantity, order.Quantity)
	}

	updated := slices.Clone(lots)

	var (
		found bool
		open  float64
		fifo  []int
	)
	for i, lot := range updated {
		if lot.Ticker != order.Ticker {
			continue
		}
		found = true
		if lot.Quantity > 0 {
			open += lot.Quantity
			fifo = append(fifo, i)
		}
	}
	if !found {
		return liquidationPlan{}, fmt.Errorf("%w: %s", apperrors.ErrPositionNotFound, order.Ticker)
	}
	if open <= 0 {
		return liquidationPlan{}, fmt.Errorf("%w: %s has no open quantity", apperrors.ErrInvalidQuantity, order.Ticker)
	}
	if order.Quantity > open+epsilon {
		return liquidationPlan{}, fmt.Errorf("%w: selling %v %s but only %v is open", apperrors.ErrInvalidQuantity, order.Quantity, order.Ticker, open)
	}

	slices.SortStableFunc(fifo, func(a, b int) int {
		if c := updated[a].AcquisitionDate.Compare(updated[b].AcquisitionDate); c != 0 {
			return c
		}
		return cmp.Compare(updated[a].ID, updated[b].ID)
	})

	quantity := decimal.NewFromFloat(order.Quantity)
	salePrice := decimal.NewFromFloat(order.SalePrice)
	totalCosts := decimal.NewFromFloat(order.TotalCosts)
	tolerance := decimal.NewFromFloat(epsilon)
	remaining := quantity

	entries := make([]model.HistoryEntry, 0, len(fifo))
	for _, i := range fifo {
		if remaining.LessThanOrEqual(tolerance) {
			break
		}
		lot := &updated[i]

		lotQuantity := decimal.NewFromFloat(lot.Quantity)
		take := decimal.Min(lotQuantity, remaining)

		allocatedCosts := decimal.Zero
		if !quantity.IsZero() {
			allocatedCosts = take.Mul(totalCosts).Div(quantity)
		}
		realized := take.Mul(salePrice).Sub(allocatedCosts)

		entries = append(entries, model.HistoryEntry{
			LotID:           lot.ID,
			Ticker:          lot.Ticker,
			Quantity:        take.InexactFloat64(),
			SalePrice:       order.SalePrice,
			CostBasisPrice:  lot.UnitCost,
			RealizedValue:   model.Float(realized.InexactFloat64()),
			LiquidationDate: order.Date,
			Status:          model.StatusSold,
			Type:            lot.Type,
			Broker:          lot.Broker,
			Currency:        lot.Currency,
		})

		left := lotQuantity.Sub(take)
		if left.IsNegative() {
			left = decimal.Zero
		}
		lot.Quantity = left.InexactFloat64()
		remaining = remaining.Sub(take)
	}
	if len(entries) == 0 {
		return liquidationPlan{}, fmt.Errorf("%w: %v is within the rounding tolerance", apperrors.ErrInvalidQuantity, order.Quantity)
	}

	return liquidationPlan{lots: updated, entries: entries}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
