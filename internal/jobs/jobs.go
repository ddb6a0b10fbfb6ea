// Package jobs runs the periodic maintenance work of the booking engine
// on a gocron scheduler: sweeping lapsed seat holds and completing shows
// that started long enough ago.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showtime-booking/internal/logging"
)

// HoldSweeper releases holds whose TTL has passed and reports how many
// shows had seats freed.
type HoldSweeper interface {
	ExpireHolds(ctx context.Context) (int, error)
}

// ShowCompleter moves shows past their start to completed.
type ShowCompleter interface {
	CompleteStartedShows(ctx context.Context, after time.Duration, loc *time.Location) (int, error)
}

// Config controls how often each job runs.
type Config struct {
	HoldSweepInterval time.Duration
	CompleteInterval  time.Duration
	ShowCompleteAfter time.Duration
	Location          *time.Location
}

// DefaultCompleteInterval is used when Config.CompleteInterval is zero.
const DefaultCompleteInterval = time.Minute

// Runner owns the scheduler and the two jobs registered on it.
type Runner struct {
	cfg   Config
	holds HoldSweeper
	shows ShowCompleter
	log   *logrus.Entry
}

// NewRunner returns a Runner; log may be nil.
func NewRunner(cfg Config, holds HoldSweeper, shows ShowCompleter, log *logrus.Entry) *Runner {
	if cfg.CompleteInterval <= 0 {
		cfg.CompleteInterval = DefaultCompleteInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Runner{cfg: cfg, holds: holds, shows: shows, log: log.WithField("component", "jobs")}
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits
// for running jobs to finish.
func (r *Runner) Run(ctx context.Context) error {
	s, err := gocron.NewScheduler(gocron.WithLocation(r.cfg.Location))
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}
	if err := r.register(ctx, s); err != nil {
		_ = s.Shutdown()
		return err
	}
	s.Start()
	r.log.WithField("jobs", len(s.Jobs())).Info("scheduler started")

	<-ctx.Done()
	if err := s.Shutdown(); err != nil {
		return fmt.Errorf("scheduler shutdown: %w", err)
	}
	r.log.Info("scheduler stopped")
	return nil
}

func (r *Runner) register(ctx context.Context, s gocron.Scheduler) error {
	if r.holds != nil && r.cfg.HoldSweepInterval > 0 {
		_, err := s.NewJob(
			gocron.DurationJob(r.cfg.HoldSweepInterval),
			gocron.NewTask(r.sweepHolds, ctx),
			gocron.WithName("hold-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("register hold sweep: %w", err)
		}
	}
	if r.shows != nil && r.cfg.ShowCompleteAfter > 0 {
		_, err := s.NewJob(
			gocron.DurationJob(r.cfg.CompleteInterval),
			gocron.NewTask(r.completeShows, ctx),
			gocron.WithName("show-complete"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("register show completion: %w", err)
		}
	}
	return nil
}

func (r *Runner) sweepHolds(ctx context.Context) {
	ctx = logging.ToContext(ctx, r.log.WithField("job", "hold-sweep"))
	n, err := r.holds.ExpireHolds(ctx)
	if err != nil {
		r.log.WithError(err).Error("hold sweep failed")
		return
	}
	if n > 0 {
		r.log.WithField("shows", n).Info("lapsed holds released")
	}
}

func (r *Runner) completeShows(ctx context.Context) {
	ctx = logging.ToContext(ctx, r.log.WithField("job", "show-complete"))
	n, err := r.shows.CompleteStartedShows(ctx, r.cfg.ShowCompleteAfter, r.cfg.Location)
	if err != nil {
		r.log.WithError(err).Error("show completion failed")
		return
	}
	if n > 0 {
		r.log.WithField("completed", n).Info("started shows completed")
	}
}
