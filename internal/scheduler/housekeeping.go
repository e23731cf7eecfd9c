package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/metrics"
)

// Purger deletes records older than a cutoff and returns how many went away
type Purger interface {
	Purge(ctx context.Context, before time.Time) (int, error)
}

// PurgeFunc adapts a function to Purger
type PurgeFunc func(ctx context.Context, before time.Time) (int, error)

func (f PurgeFunc) Purge(ctx context.Context, before time.Time) (int, error) {
	return f(ctx, before)
}

// Retention pairs a purger with how long its records are kept
type Retention struct {
	Kind   string
	Purger Purger
	Keep   time.Duration
}

// Housekeeping runs retention purges on a cron schedule in UTC
type Housekeeping struct {
	cron       *cron.Cron
	retentions []Retention
	logger     *logging.Logger
	now        func() time.Time
	timeout    time.Duration
}

func NewHousekeeping(logger *logging.Logger, retentions ...Retention) *Housekeeping {
	logger = logger.With("component", "housekeeping")
	cronLog := cronLogger{logger}

	return &Housekeeping{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		retentions: retentions,
		logger:     logger,
		now:        time.Now,
		timeout:    10 * time.Minute,
	}
}

// Start schedules the purge job with a standard five-field cron spec
func (h *Housekeeping) Start(spec string) error {
	if _, err := h.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		h.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("invalid housekeeping schedule %q: %w", spec, err)
	}

	h.cron.Start()
	h.logger.Info("housekeeping scheduled", "schedule", spec)
	return nil
}

// Stop prevents new runs and returns a context done once a running job finishes
func (h *Housekeeping) Stop() context.Context {
	return h.cron.Stop()
}

// RunOnce runs every purge; a failing purge does not stop the others
func (h *Housekeeping) RunOnce(ctx context.Context) {
	now := h.now().UTC()

	for _, r := range h.retentions {
		if r.Keep <= 0 {
			continue
		}

		before := now.Add(-r.Keep)
		n, err := r.Purger.Purge(ctx, before)
		if err != nil {
			h.logger.Error("purge failed", "kind", r.Kind, "error", err)
			continue
		}

		metrics.HousekeepingPurged.WithLabelValues(r.Kind).Add(float64(n))
		if n > 0 {
			h.logger.Info("purged old records", "kind", r.Kind, "count", n, "before", before)
		}
	}
}

// cronLogger adapts Logger to cron.Logger
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
