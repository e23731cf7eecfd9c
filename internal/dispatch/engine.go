package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redmonkez12/diary-api/internal/email"
	"github.com/redmonkez12/diary-api/internal/logging"
	"github.com/redmonkez12/diary-api/internal/metrics"
	"github.com/redmonkez12/diary-api/internal/settings"
	"github.com/redmonkez12/diary-api/internal/timezone"
)

// DefaultWindow is how long after the preferred time an email may still go out
const DefaultWindow = 5 * time.Minute

const markSentTimeout = 10 * time.Second

// SettingsStore is the settings access the engine needs
type SettingsStore interface {
	ListEnabled(ctx context.Context) ([]*settings.EmailSettings, error)
	MarkSent(ctx context.Context, userID string, at time.Time) error
}

// Generator produces and persists a recommendation for a user
type Generator interface {
	Generate(ctx context.Context, userID string) (string, error)
}

// RenderFunc builds the email for a recommendation on a local date
type RenderFunc func(text string, date time.Time) (*email.Content, error)

// Engine decides which users are due for their recommendation email and sends it
type Engine struct {
	store       SettingsStore
	generator   Generator
	sender      email.Sender
	render      RenderFunc
	logger      *logging.Logger
	now         func() time.Time
	window      time.Duration
	concurrency int
	userTimeout time.Duration
}

type Option func(*Engine)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWindow sets the eligibility window
func WithWindow(window time.Duration) Option {
	return func(e *Engine) { e.window = window }
}

// WithConcurrency processes up to n users at once
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithUserTimeout bounds the work for a single user; zero means no bound
func WithUserTimeout(d time.Duration) Option {
	return func(e *Engine) { e.userTimeout = d }
}

// WithRenderer overrides email rendering
func WithRenderer(render RenderFunc) Option {
	return func(e *Engine) { e.render = render }
}

func NewEngine(store SettingsStore, generator Generator, sender email.Sender, logger *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		generator:   generator,
		sender:      sender,
		render:      email.NewRenderer("").Recommendation,
		logger:      logger,
		now:         time.Now,
		window:      DefaultWindow,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CheckAndSend runs one dispatch pass and reports whether any email was sent.
// Only a failure to list the settings is returned; per-user failures are logged.
func (e *Engine) CheckAndSend(ctx context.Context) (bool, error) {
	start := e.now()
	now := start.UTC()

	enabled, err := e.store.ListEnabled(ctx)
	if err != nil {
		metrics.DispatchPasses.WithLabelValues("error").Inc()
		return false, fmt.Errorf("failed to list email settings: %w", err)
	}

	var sent atomic.Int64
	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for _, s := range enabled {
		g.Go(func() error {
			if e.processUser(ctx, s, now) {
				sent.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	metrics.DispatchPasses.WithLabelValues("ok").Inc()
	metrics.DispatchPassDuration.Observe(time.Since(start).Seconds())

	e.logger.Debug("dispatch pass finished",
		"users", len(enabled),
		"sent", sent.Load(),
	)
	return sent.Load() > 0, nil
}

func (e *Engine) processUser(ctx context.Context, s *settings.EmailSettings, now time.Time) (sent bool) {
	logger := e.logger.With("user_id", s.UserID)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("dispatch for user panicked", "panic", r)
			metrics.DispatchDecisions.WithLabelValues("panic").Inc()
			sent = false
		}
	}()

	d := Evaluate(s, now, e.window)
	if d.FellBack {
		logger.Warn("unknown time zone, using UTC", "time_zone", s.TimeZone)
	}
	metrics.DispatchDecisions.WithLabelValues(string(d.Reason)).Inc()

	if !d.Send {
		return false
	}

	if e.userTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.userTimeout)
		defer cancel()
	}

	operationID, err := e.deliver(ctx, s, d.LocalNow)
	if err != nil {
		logger.Error("scheduled email failed", "error", err)
		metrics.DispatchDecisions.WithLabelValues("failed").Inc()
		return false
	}

	// The email is out; record it even if the pass is being cancelled
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markSentTimeout)
	defer cancel()

	if err := e.store.MarkSent(markCtx, s.UserID, now); err != nil {
		logger.Error("email sent but not recorded", "operation_id", operationID, "error", err)
		return true
	}

	logger.Info("scheduled email sent",
		"operation_id", operationID,
		"preferred_utc", d.PreferredUTC,
		"delay", d.Delta,
	)
	return true
}

// SendTest generates and sends a recommendation email now. The schedule
// bookkeeping is left untouched.
func (e *Engine) SendTest(ctx context.Context, s *settings.EmailSettings) (string, error) {
	loc, _ := timezone.ResolveOrUTC(s.TimeZone)

	operationID, err := e.deliver(ctx, s, e.now().In(loc))
	if err != nil {
		return "", err
	}

	e.logger.Info("test email sent", "user_id", s.UserID, "operation_id", operationID)
	return operationID, nil
}

func (e *Engine) deliver(ctx context.Context, s *settings.EmailSettings, localNow time.Time) (string, error) {
	text, err := e.generator.Generate(ctx, s.UserID)
	if err != nil {
		return "", fmt.Errorf("generate recommendation: %w", err)
	}

	content, err := e.render(text, localNow)
	if err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}

	operationID, err := e.sender.Send(ctx, s.Email, content.Subject, content.HTML, content.Text)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}

	return operationID, nil
}
