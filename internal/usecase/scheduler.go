package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	applogger "NTIWatch/pkg/logger"
)

// Runner executes one evaluation.
type Runner interface {
	Run(ctx context.Context) (*models.Outcome, error)
}

// Scheduler runs evaluations on a cron expression. A tick that fires while
// the previous run is still in progress is skipped.
type Scheduler struct {
	runner  Runner
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	l       *applogger.Logger
}

// NewScheduler validates spec (standard five-field cron, UTC). An empty
// spec is accepted for run-once use; Start then fails. timeout bounds a
// single run; zero means no bound.
func NewScheduler(runner Runner, spec string, timeout time.Duration, l *applogger.Logger) (*Scheduler, error) {
	if spec != "" {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("%w: schedule %q: %v", domrepo.ErrInvalidConfig, spec, err)
		}
	}
	if l == nil {
		l = applogger.NewNop()
	}
	l = l.Component("scheduler")
	return &Scheduler{
		runner: runner,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{l: l})),
		),
		spec:    spec,
		timeout: timeout,
		l:       l,
	}, nil
}

// Start registers the job and starts the cron loop. Runs inherit ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.spec == "" {
		return fmt.Errorf("%w: no schedule configured", domrepo.ErrInvalidConfig)
	}
	if _, err := s.cron.AddFunc(s.spec, func() { _, _ = s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule evaluation: %w", err)
	}
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("cron", s.spec))
	return nil
}

// Stop halts the cron loop and waits for a running evaluation to finish
// or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next scheduled activation, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunOnce executes a single evaluation and logs its result.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.Outcome, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.runner.Run(ctx)
	switch {
	case err == nil:
		s.l.Info("scheduled evaluation finished",
			applogger.Bool("fired", out.Fired()),
			applogger.Duration("duration_ms", out.Duration),
		)
	case errors.Is(err, domrepo.ErrPersistenceUnavailable):
		s.l.Warn("scheduled evaluation degraded", applogger.Error(err))
	default:
		s.l.Error("scheduled evaluation failed", applogger.Error(err))
	}
	return out, err
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applogger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(kvFields(keysAndValues), applogger.Error(err))...)
}

func kvFields(kv []any) []applogger.Field {
	fields := make([]applogger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, applogger.Any(key, kv[i+1]))
	}
	return fields
}
