package testutil

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/ndewijer/Position-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Position-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Position-Ledger-Backend/internal/service"
)

// NewTestLedgerRepository returns a plain-JSON repository over db.
func NewTestLedgerRepository(t *testing.T, db *sql.DB) *repository.LedgerRepository {
	t.Helper()
	return repository.NewLedgerRepository(db, repository.PlainCodec{})
}

// NewTestLedgerService wires a LedgerService over a plain-JSON repository and a
// discarding logger.
func NewTestLedgerService(t *testing.T, db *sql.DB, opts ...service.Option) *service.LedgerService {
	t.Helper()

	return service.NewLedgerService(
		NewTestLedgerRepository(t, db),
		logger.Discard(),
		opts...,
	)
}

// MakeID returns a fresh record ID.
func MakeID() string {
	return uuid.New().String()
}

var tickerCounter atomic.Int64

// MakeTicker returns a unique ticker built from prefix, e.g. "TEST3".
func MakeTicker(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, tickerCounter.Add(1))
}
