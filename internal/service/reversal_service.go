package service

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// ReverseHistoryEntry undoes a single liquidation entry: its quantity is added back
// to a lot of the same ticker and the entry is removed from the history. Both
// collections are replaced in one durable transaction.
//
// The lot that receives the quantity is, in order of preference:
//   - the lot recorded on the entry at liquidation time, when it still exists
//   - the oldest remaining lot of the same ticker
//   - a reconstructed lot built from the entry, when the ticker has no lots left
//
// Returns the lot as it was written. Fails with ErrHistoryEntryNotFound for an
// unknown id and ErrReversalCancelled when the confirmation hook declines.
func (s *LedgerService) ReverseHistoryEntry(ctx context.Context, id model.RecordID) (model.Lot, error) {
	if id == "" {
		return model.Lot{}, fmt.Errorf("%w: empty id", apperrors.ErrHistoryEntryNotFound)
	}

	lot, err := s.reverse(ctx, id)
	if err != nil {
		return model.Lot{}, err
	}

	s.notifyChanged()
	return lot, nil
}

func (s *LedgerService) reverse(ctx context.Context, id model.RecordID) (model.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.reload(ctx)
	if err != nil {
		return model.Lot{}, err
	}

	idx := slices.IndexFunc(snapshot.History, func(h model.HistoryEntry) bool {
		return h.ID == id
	})
	if idx < 0 {
		return model.Lot{}, fmt.Errorf("%w: %s", apperrors.ErrHistoryEntryNotFound, id)
	}
	entry := snapshot.History[idx]

	if s.hooks.ConfirmReversal != nil && !s.hooks.ConfirmReversal(entry) {
		return model.Lot{}, apperrors.ErrReversalCancelled
	}

	lots := slices.Clone(snapshot.Lots)
	var restored model.Lot
	if target := restoreTarget(lots, entry); target >= 0 {
		restoredQuantity := decimal.NewFromFloat(lots[target].Quantity).Add(decimal.NewFromFloat(entry.Quantity))
		lots[target].Quantity = restoredQuantity.InexactFloat64()
		restored = lots[target]
	} else {
		restored = reconstructLot(entry)
		lots = append(lots, restored)
	}

	history := slices.Delete(slices.Clone(snapshot.History), idx, idx+1)

	if err := s.store.ReplaceLedger(ctx, model.LedgerSnapshot{Lots: lots, History: history}); err != nil {
		return model.Lot{}, err
	}
	s.forgetReads()

	s.logger.WithFields(logrus.Fields{
		"historyId": entry.ID,
		"ticker":    entry.Ticker,
		"quantity":  entry.Quantity,
		"lotId":     restored.ID,
	}).Info("reversed history entry")

	return restored, nil
}

// restoreTarget returns the index of the lot that should receive the reversed
// quantity, or -1 when the ticker has no lots left.
func restoreTarget(lots []model.Lot, entry model.HistoryEntry) int {
	if entry.LotID != "" {
		for i, lot := range lots {
			if lot.ID == entry.LotID && lot.Ticker == entry.Ticker {
				return i
			}
		}
	}

	target := -1
	for i, lot := range lots {
		if lot.Ticker != entry.Ticker {
			continue
		}
		if target < 0 || olderLot(lot, lots[target]) {
			target = i
		}
	}
	return target
}

func olderLot(a, b model.Lot) bool {
	if c := a.AcquisitionDate.Compare(b.AcquisitionDate); c != 0 {
		return c < 0
	}
	return cmp.Less(a.ID, b.ID)
}

// reconstructLot rebuilds a lot from a history entry whose ticker has no lots left.
// The acquisition date is unknown, so the liquidation date stands in for it.
func reconstructLot(entry model.HistoryEntry) model.Lot {
	id := entry.LotID
	if id == "" {
		id = model.RecordID(uuid.NewString())
	}
	return model.Lot{
		ID:              id,
		Ticker:          entry.Ticker,
		Type:            entry.Type,
		Quantity:        entry.Quantity,
		UnitCost:        entry.CostBasisPrice,
		CurrentPrice:    entry.SalePrice,
		AcquisitionDate: entry.LiquidationDate,
		Currency:        entry.Currency,
		Broker:          entry.Broker,
	}
}
