package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redmonkez12/diary-api/internal/logging"
)

// Dispatcher runs one dispatch pass
type Dispatcher interface {
	CheckAndSend(ctx context.Context) (bool, error)
}

// Locker guards a pass across replicas. Acquire reports false when another
// holder has the lock; the pass runs on held, and release must be called once
// it is done.
type Locker interface {
	Acquire(ctx context.Context) (held context.Context, release func(), ok bool, err error)
}

// Loop runs dispatch passes with a fixed delay between the end of one pass and
// the start of the next. Missed passes are not caught up.
type Loop struct {
	dispatcher Dispatcher
	interval   time.Duration
	logger     *logging.Logger
	locker     Locker
	running    atomic.Bool
}

type Option func(*Loop)

// WithLocker makes every pass take the lock first
func WithLocker(locker Locker) Option {
	return func(l *Loop) { l.locker = locker }
}

// NewLoop validates the interval against the eligibility window: every minute
// of the window has to be observed by at least one pass.
func NewLoop(dispatcher Dispatcher, interval, window time.Duration, logger *logging.Logger, opts ...Option) (*Loop, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if interval > window {
		return nil, fmt.Errorf("poll interval %s exceeds the eligibility window %s", interval, window)
	}

	l := &Loop{
		dispatcher: dispatcher,
		interval:   interval,
		logger:     logger.With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run performs a pass immediately and then one every interval until ctx is
// cancelled. It always returns nil once ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scheduler started", "interval", l.interval)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopped")
			return nil
		case <-timer.C:
		}

		// both cases may be ready at once
		if ctx.Err() != nil {
			l.logger.Info("scheduler stopped")
			return nil
		}

		l.RunOnce(ctx)
		timer.Reset(l.interval)
	}
}

// RunOnce performs a single pass and reports whether it ran. It does nothing
// when a pass is already in progress or another replica holds the lock.
func (l *Loop) RunOnce(ctx context.Context) bool {
	if !l.running.CompareAndSwap(false, true) {
		l.logger.Debug("previous pass still running, skipping")
		return false
	}
	defer l.running.Store(false)

	if l.locker != nil {
		held, release, ok, err := l.locker.Acquire(ctx)
		if err != nil {
			l.logger.Error("failed to acquire dispatch lock", "error", err)
			return false
		}
		if !ok {
			l.logger.Debug("dispatch lock held elsewhere, skipping")
			return false
		}
		defer release()
		ctx = held
	}

	l.pass(ctx)
	return true
}

func (l *Loop) pass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch pass panicked", "panic", r)
		}
	}()

	start := time.Now()
	sentAny, err := l.dispatcher.CheckAndSend(ctx)
	if err != nil {
		l.logger.Error("dispatch pass failed", "error", err)
		return
	}

	if sentAny {
		l.logger.Info("dispatch pass sent emails", "duration", time.Since(start).Round(time.Millisecond))
	}
}
