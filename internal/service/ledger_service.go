package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Position-Ledger-Backend/internal/config"
	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// Hooks are the collaborators the ledger notifies or consults around mutations.
type Hooks struct {
	// OnLedgerChanged is called exactly once after every successful liquidation or
	// reversal, after the ledger lock has been released.
	OnLedgerChanged func()

	// ConfirmReversal is consulted while the ledger lock is held, before a reversal
	// is committed. Returning false cancels the reversal. A nil hook always confirms.
	ConfirmReversal func(entry model.HistoryEntry) bool
}

// Option customizes a LedgerService.
type Option func(*LedgerService)

// WithEpsilon sets the quantity tolerance applied to sell orders.
func WithEpsilon(epsilon float64) Option {
	return func(s *LedgerService) {
		if epsilon > 0 {
			s.epsilon = epsilon
		}
	}
}

// WithHooks installs the change and confirmation collaborators.
func WithHooks(hooks Hooks) Option {
	return func(s *LedgerService) {
		s.hooks = hooks
	}
}

// WithClock overrides the clock used to date liquidations submitted without a date.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

// LedgerService is the ledger session: it owns the single-writer lock around the
// lot and history collections and exposes the aggregation, liquidation, reversal
// and healing operations.
//
// The store is the only source of truth. Every mutation reloads both collections
// under the write lock before planning, and commits its result in one durable
// transaction. Reads take the read lock so they never observe lots and history
// from different epochs.
type LedgerService struct {
	store   LedgerStore
	logger  *logrus.Entry
	hooks   Hooks
	epsilon float64
	now     func() time.Time

	mu    sync.RWMutex
	reads singleflight.Group
}

// NewLedgerService creates a new LedgerService with the provided store and options.
func NewLedgerService(store LedgerStore, logger *logrus.Logger, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:   store,
		logger:  logger.WithField("component", "ledger-service"),
		epsilon: config.DefaultEpsilon,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Epsilon returns the quantity tolerance in use.
func (s *LedgerService) Epsilon() float64 {
	return s.epsilon
}

// snapshotKey is the singleflight key shared by concurrent snapshot reads.
const snapshotKey = "snapshot"

type snapshotResult struct {
	snapshot  model.LedgerSnapshot
	needsHeal bool
}

// Snapshot returns a consistent, healed copy of both collections.
//
// Concurrent callers share a single storage read. When the stored history needed
// repairs, the repaired collection is persisted under the write lock before returning.
func (s *LedgerService) Snapshot(ctx context.Context) (model.LedgerSnapshot, error) {
	v, err, _ := s.reads.Do(snapshotKey, func() (any, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		snapshot, err := s.store.LoadSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		healed, report := Heal(snapshot.History)
		snapshot.History = healed
		return snapshotResult{snapshot: snapshot, needsHeal: report.Repaired > 0}, nil
	})
	if err != nil {
		return model.LedgerSnapshot{}, err
	}

	result := v.(snapshotResult)
	if result.needsHeal {
		if _, err := s.HealStore(ctx); err != nil {
			s.logger.WithError(err).Warn("failed to persist healed history")
		}
	}

	return model.LedgerSnapshot{
		Lots:    slices.Clone(result.snapshot.Lots),
		History: slices.Clone(result.snapshot.History),
	}, nil
}

// reload discards any in-memory state and reads both collections from the store.
// Repaired history is persisted before it is handed to the caller.
// Callers must hold s.mu for writing.
func (s *LedgerService) reload(ctx context.Context) (model.LedgerSnapshot, error) {
	snapshot, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return model.LedgerSnapshot{}, err
	}

	healed, report := Heal(snapshot.History)
	if report.Repaired > 0 {
		if err := s.store.SaveHistory(ctx, healed); err != nil {
			return model.LedgerSnapshot{}, err
		}
		s.forgetReads()
		s.logger.WithFields(logrus.Fields{
			"scanned":  report.Scanned,
			"repaired": report.Repaired,
		}).Warn("repaired malformed history entries")
	}
	snapshot.History = healed

	return snapshot, nil
}

// forgetReads detaches any snapshot read still in flight so that readers arriving
// after a commit start a fresh read instead of joining one that began before it.
// Callers must hold s.mu for writing and call it after the commit succeeded.
func (s *LedgerService) forgetReads() {
	s.reads.Forget(snapshotKey)
}

func (s *LedgerService) notifyChanged() {
	if s.hooks.OnLedgerChanged != nil {
		s.hooks.OnLedgerChanged()
	}
}

// Lots returns the stored lots, optionally restricted to one ticker.
func (s *LedgerService) Lots(ctx context.Context, ticker string) ([]model.Lot, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ticker = model.NormalizeTicker(ticker); ticker != "" {
		return snapshot.LotsFor(ticker), nil
	}
	return snapshot.Lots, nil
}

// History returns the stored history entries, optionally restricted to one ticker.
func (s *LedgerService) History(ctx context.Context, ticker string) ([]model.HistoryEntry, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ticker = model.NormalizeTicker(ticker); ticker != "" {
		return snapshot.HistoryFor(ticker), nil
	}
	return snapshot.History, nil
}
