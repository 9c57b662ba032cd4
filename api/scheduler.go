/*
scheduler.go - Scheduled maintenance jobs

PURPOSE:
  Runs the recurring back-office jobs on a cron schedule:
  - Nightly consistency audit: refold every account balance from its
    transaction history, repairing any drift in the stored column.
  - Monthly fee sweep: debit maintenance fees on fee-bearing accounts.
  - Monthly interest posting: credit interest on interest-bearing
    accounts.

DESIGN:
  robfig/cron drives the schedule. Each job is a thin wrapper around the
  corresponding Service method; all ledger rules (validation, floors,
  recompute) live there, not here. Job failures are logged and retried on
  the next tick - no job leaves partial state because every posting goes
  through the validated applier path.

SCHEDULE:
  0 2 * * *    nightly balance audit (02:00)
  0 3 1 * *    monthly fees (1st, 03:00)
  30 3 1 * *   monthly interest (1st, 03:30)

USAGE:
  scheduler := NewScheduler(svc, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - bank/fees.go: Fee and interest posting
  - ledger/maintain.go: Balance recompute
*/
package api

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/meridian/ledger-engine/bank"
)

// Scheduler owns the cron runner for recurring ledger maintenance.
type Scheduler struct {
	Service *bank.Service

	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler creates a scheduler with the default job set registered.
func NewScheduler(svc *bank.Service, log *logrus.Logger) (*Scheduler, error) {
	if log == nil {
		log = logrus.New()
	}
	s := &Scheduler{
		Service: svc,
		cron:    cron.New(),
		log:     log,
	}

	jobs := []struct {
		spec string
		name string
		run  func(context.Context) error
	}{
		{"0 2 * * *", "balance audit", s.auditBalances},
		{"0 3 1 * *", "monthly fees", s.postFees},
		{"30 3 1 * *", "monthly interest", s.postInterest},
	}
	for _, j := range jobs {
		j := j
		if _, err := s.cron.AddFunc(j.spec, func() {
			if err := j.run(context.Background()); err != nil {
				s.log.WithError(err).WithField("job", j.name).Error("scheduled job failed")
			}
		}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start begins the cron runner.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop halts the cron runner, waiting for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) auditBalances(ctx context.Context) error {
	s.log.Info("nightly balance audit starting")
	return s.Service.RecomputeAllBalances(ctx)
}

func (s *Scheduler) postFees(ctx context.Context) error {
	posted, err := s.Service.PostMonthlyFees(ctx)
	if err != nil {
		return err
	}
	s.log.WithField("posted", posted).Info("monthly fee sweep finished")
	return nil
}

func (s *Scheduler) postInterest(ctx context.Context) error {
	posted, err := s.Service.PostInterest(ctx)
	if err != nil {
		return err
	}
	s.log.WithField("posted", posted).Info("monthly interest posting finished")
	return nil
}
