package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/ndewijer/Position-Ledger-Backend/internal/apperrors"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// Names of the two persisted collections.
const (
	AssetsCollection  = "local_assets"
	HistoryCollection = "local_history"
)

// LedgerRepository stores the lot and history collections as whole documents in the
// ledger_document table. Every write replaces a full document; there are no partial
// or delta writes.
type LedgerRepository struct {
	db    *sql.DB
	codec DocumentCodec
}

// NewLedgerRepository creates a new LedgerRepository. A nil codec stores plain JSON.
func NewLedgerRepository(db *sql.DB, codec DocumentCodec) *LedgerRepository {
	if codec == nil {
		codec = PlainCodec{}
	}
	return &LedgerRepository{db: db, codec: codec}
}

// LoadSnapshot reads both collections inside a single transaction so the lots and
// the history always come from the same storage epoch.
func (r *LedgerRepository) LoadSnapshot(ctx context.Context) (model.LedgerSnapshot, error) {
	var snapshot model.LedgerSnapshot
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		lots, err := r.readLots(ctx, tx)
		if err != nil {
			return err
		}
		history, err := r.readHistory(ctx, tx)
		if err != nil {
			return err
		}
		snapshot = model.LedgerSnapshot{Lots: lots, History: history}
		return nil
	})
	if err != nil {
		return model.LedgerSnapshot{}, err
	}
	return snapshot, nil
}

// LoadLots reads the lot collection.
func (r *LedgerRepository) LoadLots(ctx context.Context) ([]model.Lot, error) {
	return r.readLots(ctx, r.db)
}

// LoadHistory reads the history collection.
func (r *LedgerRepository) LoadHistory(ctx context.Context) ([]model.HistoryEntry, error) {
	return r.readHistory(ctx, r.db)
}

// SaveLots replaces the lot collection.
func (r *LedgerRepository) SaveLots(ctx context.Context, lots []model.Lot) error {
	return r.writeDocument(ctx, r.db, AssetsCollection, lots)
}

// SaveHistory replaces the history collection. It is used for removals and repairs;
// new entries must go through AppendHistoryEntries.
func (r *LedgerRepository) SaveHistory(ctx context.Context, history []model.HistoryEntry) error {
	return r.writeDocument(ctx, r.db, HistoryCollection, history)
}

// ReplaceLedger replaces both collections in one transaction.
func (r *LedgerRepository) ReplaceLedger(ctx context.Context, snapshot model.LedgerSnapshot) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.writeDocument(ctx, tx, AssetsCollection, snapshot.Lots); err != nil {
			return err
		}
		return r.writeDocument(ctx, tx, HistoryCollection, snapshot.History)
	})
}

// AppendHistoryEntry appends a single entry to the stored history and returns it with its assigned ID.
func (r *LedgerRepository) AppendHistoryEntry(ctx context.Context, entry model.HistoryEntry) (model.HistoryEntry, error) {
	appended, err := r.AppendHistoryEntries(ctx, nil, []model.HistoryEntry{entry})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	return appended[0], nil
}

// AppendHistoryEntries is the only path that adds entries to the history collection.
//
// Inside one transaction it re-reads the stored history (never an in-memory copy),
// assigns every new entry an ID that collides with no stored or sibling entry,
// appends them and writes the full collection back. When lots is non-nil the lot
// collection is replaced in the same transaction, so a liquidation commits its lot
// updates and its history entries together or not at all.
//
// Returns the appended entries with their assigned IDs.
func (r *LedgerRepository) AppendHistoryEntries(ctx context.Context, lots []model.Lot, entries []model.HistoryEntry) ([]model.HistoryEntry, error) {
	var appended []model.HistoryEntry

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		history, err := r.readHistory(ctx, tx)
		if err != nil {
			return err
		}

		taken := make(map[model.RecordID]bool, len(history)+len(entries))
		for _, h := range history {
			taken[h.ID] = true
		}

		appended = make([]model.HistoryEntry, 0, len(entries))
		for _, entry := range entries {
			for entry.ID == "" || taken[entry.ID] {
				entry.ID = model.RecordID(uuid.NewString())
			}
			taken[entry.ID] = true
			entry.Normalize()
			appended = append(appended, entry)
		}

		if lots != nil {
			if err := r.writeDocument(ctx, tx, AssetsCollection, lots); err != nil {
				return err
			}
		}
		return r.writeDocument(ctx, tx, HistoryCollection, append(history, appended...))
	})
	if err != nil {
		return nil, err
	}
	return appended, nil
}

func (r *LedgerRepository) readLots(ctx context.Context, q queryer) ([]model.Lot, error) {
	lots := []model.Lot{}
	if err := r.readDocument(ctx, q, AssetsCollection, &lots); err != nil {
		return nil, err
	}
	if lots == nil {
		lots = []model.Lot{}
	}

	for i := range lots {
		lot := &lots[i]
		lot.Normalize()
		if math.IsNaN(lot.Quantity) || math.IsInf(lot.Quantity, 0) || lot.Quantity < 0 {
			return nil, fmt.Errorf("%w: lot %s has invalid quantity %v", apperrors.ErrMalformedRecord, lot.ID, lot.Quantity)
		}
	}
	return lots, nil
}

func (r *LedgerRepository) readHistory(ctx context.Context, q queryer) ([]model.HistoryEntry, error) {
	history := []model.HistoryEntry{}
	if err := r.readDocument(ctx, q, HistoryCollection, &history); err != nil {
		return nil, err
	}
	if history == nil {
		history = []model.HistoryEntry{}
	}

	for i := range history {
		history[i].Normalize()
	}
	return history, nil
}

// readDocument decodes the named document into dst. A missing document leaves dst untouched.
func (r *LedgerRepository) readDocument(ctx context.Context, q queryer, name string, dst any) error {
	var sealed []byte
	err := q.QueryRowContext(ctx, `SELECT document FROM ledger_document WHERE name = ?`, name).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", apperrors.ErrPersistenceFailure, name, err)
	}

	plain, err := r.codec.Open(sealed)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", apperrors.ErrPersistenceFailure, name, err)
	}
	if len(plain) == 0 {
		return nil
	}

	if err := json.Unmarshal(plain, dst); err != nil {
		return fmt.Errorf("%w: %s: %w", apperrors.ErrMalformedRecord, name, err)
	}
	return nil
}

// writeDocument serializes src and replaces the named document with it.
func (r *LedgerRepository) writeDocument(ctx context.Context, q queryer, name string, src any) error {
	plain, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", apperrors.ErrPersistenceFailure, name, err)
	}

	sealed, err := r.codec.Seal(plain)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", apperrors.ErrPersistenceFailure, name, err)
	}

	query := `
		INSERT INTO ledger_document (name, document, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, name, sealed); err != nil {
		return fmt.Errorf("%w: write %s: %w", apperrors.ErrPersistenceFailure, name, err)
	}
	return nil
}
