package usecase

import (
	"context"
	"errors"
	"math"
	"sync"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
)

type fakePrices struct {
	fetches map[string]models.PriceFetch
	err     error
}

func (f *fakePrices) FetchPrices(_ context.Context, symbols []string) (map[string]models.PriceFetch, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.PriceFetch, len(symbols))
	for _, s := range symbols {
		if pf, ok := f.fetches[s]; ok {
			out[s] = pf
		}
	}
	return out, nil
}

type fakeDocuments struct {
	fetches map[string]models.DocumentFetch
	err     error
}

func (f *fakeDocuments) FetchDocuments(_ context.Context, symbols []string) (map[string]models.DocumentFetch, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]models.DocumentFetch, len(symbols))
	for _, s := range symbols {
		if df, ok := f.fetches[s]; ok {
			out[s] = df
		}
	}
	return out, nil
}

// stubSynth returns a fixed synthesis and records what it was given.
type stubSynth struct {
	out    models.Synthesis
	scores []models.DomainScores
}

func (s *stubSynth) Name() string { return "stub" }

func (s *stubSynth) Synthesize(scores models.DomainScores) (models.Synthesis, error) {
	s.scores = append(s.scores, scores)
	return s.out, nil
}

type brokenStore struct{}

var errRedisDown = errors.New("redis down")

func (brokenStore) Read(context.Context, string) (models.PersistenceState, error) {
	return models.PersistenceState{}, errRedisDown
}

func (brokenStore) Write(context.Context, string, models.PersistenceState) error {
	return errRedisDown
}

func (brokenStore) CompareAndSwap(context.Context, string, int64, models.PersistenceState) error {
	return errRedisDown
}

// contendedStore fails the first n swaps as if another writer won.
type contendedStore struct {
	domrepo.StateStore
	mu        sync.Mutex
	conflicts int
	swaps     int
}

func (c *contendedStore) CompareAndSwap(ctx context.Context, key string, expected int64, next models.PersistenceState) error {
	c.mu.Lock()
	c.swaps++
	if c.conflicts > 0 {
		c.conflicts--
		c.mu.Unlock()
		return domrepo.ErrStateConflict
	}
	c.mu.Unlock()
	return c.StateStore.CompareAndSwap(ctx, key, expected, next)
}

type recordingSink struct {
	name      string
	artifacts []*models.TriggerArtifact
	err       error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Write(_ context.Context, a *models.TriggerArtifact) error {
	if r.err != nil {
		return r.err
	}
	r.artifacts = append(r.artifacts, a)
	return nil
}

type recordingLog struct {
	appended []*models.TriggerArtifact
}

func (r *recordingLog) Append(_ context.Context, a *models.TriggerArtifact) error {
	r.appended = append(r.appended, a)
	return nil
}

type countingMetrics struct {
	mu          sync.Mutex
	triggers    int
	evaluations map[string]int
	excluded    map[string]int
	errors      map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		evaluations: make(map[string]int),
		excluded:    make(map[string]int),
		errors:      make(map[string]int),
	}
}

func (m *countingMetrics) RecordEvaluation(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluations[result]++
}

func (m *countingMetrics) RecordIndex(float64, bool) {}
func (m *countingMetrics) RecordCounter(int)         {}

func (m *countingMetrics) RecordTrigger() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggers++
}

func (m *countingMetrics) RecordExcluded(kind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.excluded[kind+"/"+reason]++
}

func (m *countingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *countingMetrics) RecordLatency(string, float64) {}

// wave is a deterministic oscillating price path ending in a jump.
func wave(n int, phase float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 3*math.Sin(float64(i)/3+phase) + 0.05*float64(i)
	}
	out[n-1] *= 1.08
	return out
}
