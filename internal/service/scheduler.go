package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the periodic ledger maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *logrus.Entry
}

// NewScheduler registers a healing sweep on the given cron spec.
// An empty spec or "off" yields a scheduler without jobs.
func NewScheduler(ledger *LedgerService, spec string, logger *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger.WithField("component", "scheduler"),
	}

	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, "off") {
		s.logger.Info("healing sweep disabled")
		return s, nil
	}

	_, err := s.cron.AddFunc(spec, func() {
		report, err := ledger.HealStore(context.Background())
		if err != nil {
			s.logger.WithError(err).Error("healing sweep failed")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"scanned":  report.Scanned,
			"repaired": report.Repaired,
		}).Debug("healing sweep completed")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid heal schedule %q: %w", spec, err)
	}

	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and returns a context that is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
