package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/usecase"
	"NTIWatch/pkg/config"
	xhttp "NTIWatch/pkg/http"
	applogger "NTIWatch/pkg/logger"
)

// Evaluations is what App needs from the scheduler.
type Evaluations interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	RunOnce(ctx context.Context) (*models.Outcome, error)
}

var _ Evaluations = (*usecase.Scheduler)(nil)

// App encapsulates the application lifecycle: either one evaluation for an
// external cron, or the in-process scheduler plus the status server.
type App struct {
	cfg        *config.Config
	evals      Evaluations
	httpServer *xhttp.Server
	l          *applogger.Logger
}

// New creates a new App. httpServer may be nil.
func New(cfg *config.Config, evals Evaluations, httpServer *xhttp.Server, l *applogger.Logger) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, evals: evals, httpServer: httpServer, l: l}
}

// Run blocks until ctx is cancelled, or until the single evaluation
// finishes in run-once mode.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Schedule.RunOnce {
		return a.runOnce(ctx)
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	if err := a.evals.Start(ctx); err != nil {
		a.stopHTTP()
		return err
	}
	a.l.Info("service started",
		applogger.Strings("universe", a.cfg.Universe.Symbols),
		applogger.String("cron", a.cfg.Schedule.Cron),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) runOnce(ctx context.Context) error {
	out, err := a.evals.RunOnce(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case out != nil:
		a.l.Warn("evaluation finished degraded", applogger.Bool("fired", out.Fired()))
	}
	return err
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.evals.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
	}
	a.stopHTTP()
	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

func (a *App) stopHTTP() {
	if a.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+time.Second)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}
}
