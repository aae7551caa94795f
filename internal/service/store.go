package service

//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks

import (
	"context"

	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// LedgerStore is the durable storage the ledger session reads from and commits to.
// repository.LedgerRepository is the production implementation.
type LedgerStore interface {
	// LoadSnapshot reads both collections in one storage epoch.
	LoadSnapshot(ctx context.Context) (model.LedgerSnapshot, error)
	// SaveHistory replaces the history collection (repairs only).
	SaveHistory(ctx context.Context, history []model.HistoryEntry) error
	// AppendHistoryEntries appends entries to the freshly read history and, when lots
	// is non-nil, replaces the lot collection in the same durable transaction.
	AppendHistoryEntries(ctx context.Context, lots []model.Lot, entries []model.HistoryEntry) ([]model.HistoryEntry, error)
	// ReplaceLedger replaces both collections in one durable transaction.
	ReplaceLedger(ctx context.Context, snapshot model.LedgerSnapshot) error
}
