package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	"NTIWatch/pkg/config"
)

type fakeEvaluations struct {
	started, stopped, runs atomic.Int32
	out                    *models.Outcome
	err                    error
}

func (f *fakeEvaluations) Start(context.Context) error {
	f.started.Add(1)
	return nil
}

func (f *fakeEvaluations) Stop(context.Context) error {
	f.stopped.Add(1)
	return nil
}

func (f *fakeEvaluations) RunOnce(context.Context) (*models.Outcome, error) {
	f.runs.Add(1)
	return f.out, f.err
}

func testConfig(runOnce bool) *config.Config {
	cfg := &config.Config{}
	cfg.Schedule.RunOnce = runOnce
	cfg.Schedule.Cron = "0 */4 * * *"
	cfg.Server.ShutdownTimeout = time.Second
	return cfg
}

func TestApp_RunOnce(t *testing.T) {
	evals := &fakeEvaluations{out: &models.Outcome{}}
	app := New(testConfig(true), evals, nil, nil)

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, int32(1), evals.runs.Load())
	assert.Zero(t, evals.started.Load())
}

func TestApp_RunOnceDegraded(t *testing.T) {
	evals := &fakeEvaluations{
		out: &models.Outcome{},
		err: errors.Join(domrepo.ErrPersistenceUnavailable, errors.New("redis down")),
	}
	app := New(testConfig(true), evals, nil, nil)

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, domrepo.ErrPersistenceUnavailable)
}

func TestApp_ScheduledUntilCancelled(t *testing.T) {
	evals := &fakeEvaluations{}
	app := New(testConfig(false), evals, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return evals.started.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, int32(1), evals.stopped.Load())
	assert.Zero(t, evals.runs.Load())
}
