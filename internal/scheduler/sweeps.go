package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/courtwallet/internal/booking"
	"github.com/codr1/courtwallet/internal/config"
)

const (
	holdSweepJob  = "hold_expiry_sweep"
	completionJob = "reservation_completion"
	sweepTimeout  = 2 * time.Minute
)

// Sweeper is the part of the booking service the background jobs drive.
type Sweeper interface {
	SweepExpiredHolds(ctx context.Context) (booking.SweepReport, error)
	CompletePastReservations(ctx context.Context) (booking.SweepReport, error)
}

// RegisterSweepJobs registers the hold expiry and completion sweeps on the
// singleton scheduler.
func RegisterSweepJobs(sweeper Sweeper, cfg config.SchedulerConfig) error {
	svc, err := ServiceInstance()
	if err != nil {
		return err
	}
	return svc.RegisterSweepJobs(sweeper, cfg)
}

func (s *Service) RegisterSweepJobs(sweeper Sweeper, cfg config.SchedulerConfig) error {
	if sweeper == nil {
		return fmt.Errorf("sweep jobs require a sweeper")
	}
	if _, err := s.AddJob(holdSweepJob, cfg.HoldSweepCron, sweepTask(holdSweepJob, sweeper.SweepExpiredHolds)); err != nil {
		return fmt.Errorf("add hold sweep job: %w", err)
	}
	if _, err := s.AddJob(completionJob, cfg.CompletionCron, sweepTask(completionJob, sweeper.CompletePastReservations)); err != nil {
		return fmt.Errorf("add completion job: %w", err)
	}
	return nil
}

// sweepTask adapts a sweep to a scheduler task with its own bounded context.
func sweepTask(name string, sweep func(context.Context) (booking.SweepReport, error)) func() {
	logger := log.With().Str("component", "sweeper").Str("job_name", name).Logger()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		ctx = logger.WithContext(ctx)

		report, err := sweep(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Sweep failed")
			return
		}
		logSweep(&logger, report)
	}
}

func logSweep(logger *zerolog.Logger, report booking.SweepReport) {
	evt := logger.Debug()
	if report.Failed > 0 {
		evt = logger.Warn()
	} else if report.Changed > 0 {
		evt = logger.Info()
	}
	evt.Int("scanned", report.Scanned).
		Int("changed", report.Changed).
		Int("failed", report.Failed).
		Msg("Sweep finished")
}
