package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Position-Ledger-Backend/internal/model"
)

// Heal returns a copy of history in which every entry whose realized value is
// missing, null, non-numeric or not finite has been set to 0.
//
// It is a pure function: entries are never removed or reordered and no other
// field is touched. Other malformed fields are rejected when the collection is
// decoded and never reach the healer.
func Heal(history []model.HistoryEntry) ([]model.HistoryEntry, model.HealReport) {
	healed := make([]model.HistoryEntry, len(history))
	copy(healed, history)

	report := model.HealReport{Scanned: len(history)}
	for i := range healed {
		if !healed[i].RealizedValue.Valid {
			healed[i].RealizedValue = model.Float(0)
			report.Repaired++
		}
	}
	return healed, report
}

// HealStore reloads the history from the store, heals it and persists the result
// when anything was repaired. Already healthy data produces no write.
func (s *LedgerService) HealStore(ctx context.Context) (model.HealReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.store.LoadSnapshot(ctx)
	if err != nil {
		return model.HealReport{}, err
	}

	healed, report := Heal(snapshot.History)
	if report.Repaired == 0 {
		return report, nil
	}

	if err := s.store.SaveHistory(ctx, healed); err != nil {
		return report, err
	}
	report.Persisted = true
	s.forgetReads()

	s.logger.WithFields(logrus.Fields{
		"scanned":  report.Scanned,
		"repaired": report.Repaired,
	}).Warn("repaired malformed history entries")

	return report, nil
}
