package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	domsvc "NTIWatch/internal/domain/service"
	"NTIWatch/internal/services/persistence"
	"NTIWatch/internal/services/synthesis"
	"NTIWatch/internal/services/trigger"
	applogger "NTIWatch/pkg/logger"
)

// Degradation notes recorded on the artifact.
const (
	NotePersistenceUnavailable = "persistence_unavailable"
	NoteNarrativeUnavailable   = "narrative_unavailable"
	NoteNarrativeDisabled      = "narrative_disabled"
)

// Evaluation results reported to metrics.
const (
	ResultFired    = "fired"
	ResultQuiet    = "not_fired"
	ResultDegraded = "degraded"
	ResultFailed   = "failed"
)

// EvaluatorConfig is the run-level configuration of an Evaluator.
type EvaluatorConfig struct {
	Universe        []string
	PersistenceKey  string
	CASRetries      int
	Thresholds      models.Thresholds
	EmitDiagnostics bool
}

// EvaluatorOption configures optional collaborators.
type EvaluatorOption func(*Evaluator)

// WithDocumentSource enables the narrative domain.
func WithDocumentSource(src domrepo.DocumentSource) EvaluatorOption {
	return func(e *Evaluator) { e.docs = src }
}

// WithSinks sets where artifacts are written.
func WithSinks(sinks ...domrepo.ArtifactSink) EvaluatorOption {
	return func(e *Evaluator) { e.sinks = append(e.sinks, sinks...) }
}

func WithRunIDStore(s domrepo.RunIDStore) EvaluatorOption {
	return func(e *Evaluator) { e.runIDs = s }
}

func WithEvaluationLog(l domrepo.EvaluationLog) EvaluatorOption {
	return func(e *Evaluator) { e.evalLog = l }
}

func WithMetrics(m domrepo.Metrics) EvaluatorOption {
	return func(e *Evaluator) { e.metrics = m }
}

func WithLogger(l *applogger.Logger) EvaluatorOption {
	return func(e *Evaluator) { e.l = l }
}

// WithClock overrides the evaluation timestamp source.
func WithClock(now func() time.Time) EvaluatorOption {
	return func(e *Evaluator) { e.now = now }
}

// Evaluator runs one full pass: ingest, signals, aggregate, synthesize,
// persistence update, decision and artifact delivery. Runs for the same
// persistence key must not overlap; the Scheduler enforces that within a
// process and compare-and-swap across processes.
type Evaluator struct {
	cfg     EvaluatorConfig
	prices  domrepo.PriceSource
	docs    domrepo.DocumentSource
	engine  *SignalEngine
	synth   domsvc.Synthesizer
	state   domrepo.StateStore
	runIDs  domrepo.RunIDStore
	sinks   []domrepo.ArtifactSink
	evalLog domrepo.EvaluationLog
	metrics domrepo.Metrics
	l       *applogger.Logger
	now     func() time.Time

	mu     sync.RWMutex
	latest *models.TriggerArtifact
}

func NewEvaluator(cfg EvaluatorConfig, prices domrepo.PriceSource, engine *SignalEngine, synth domsvc.Synthesizer, state domrepo.StateStore, opts ...EvaluatorOption) (*Evaluator, error) {
	if len(cfg.Universe) == 0 {
		return nil, domrepo.ErrEmptyUniverse
	}
	if cfg.PersistenceKey == "" {
		return nil, fmt.Errorf("%w: persistence key is required", domrepo.ErrInvalidConfig)
	}
	if cfg.CASRetries < 0 {
		return nil, fmt.Errorf("%w: cas retries must be non-negative", domrepo.ErrInvalidConfig)
	}
	if err := trigger.ValidateThresholds(cfg.Thresholds); err != nil {
		return nil, err
	}
	if prices == nil || engine == nil || synth == nil || state == nil {
		return nil, fmt.Errorf("%w: evaluator dependencies are required", domrepo.ErrInvalidConfig)
	}

	e := &Evaluator{
		cfg:    cfg,
		prices: prices,
		engine: engine,
		synth:  synth,
		state:  state,
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.l == nil {
		e.l = applogger.NewNop()
	}
	return e, nil
}

// Latest returns the artifact of the most recent completed run, or nil.
func (e *Evaluator) Latest() *models.TriggerArtifact {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.latest
}

// Run executes one evaluation.
//
// With no usable instrument it returns ErrNoUsableInstruments and leaves the
// persistence state untouched. When the state cannot be updated it still
// returns the outcome, with a non-fired decision, together with an error
// wrapping ErrPersistenceUnavailable.
func (e *Evaluator) Run(ctx context.Context) (*models.Outcome, error) {
	start := time.Now()
	now := e.now().UTC()
	runID := trigger.NewRunID()
	log := e.l.With(applogger.String("run_id", runID))

	var notes models.Notes

	usable, coverage, err := e.ingestPrices(ctx)
	if err != nil {
		e.metrics.RecordEvaluation(ResultFailed)
		e.metrics.RecordError("ingest_prices")
		log.Error("price ingestion produced no usable instruments", applogger.Error(err))
		return nil, err
	}

	docs := e.ingestDocuments(ctx, coverage.Analyzed, &notes, log)

	signals, err := e.engine.Compute(ctx, usable, docs)
	if err != nil {
		e.metrics.RecordEvaluation(ResultFailed)
		e.metrics.RecordError("signals")
		return nil, fmt.Errorf("compute signals: %w", err)
	}

	scores := models.DomainScores{
		models.DomainQuant:     synthesis.Aggregate(models.DomainQuant, signals.Quant),
		models.DomainNarrative: synthesis.Aggregate(models.DomainNarrative, signals.Narrative),
	}
	for _, name := range signals.Uncovered {
		notes.Warnings = append(notes.Warnings, fmt.Sprintf("component %s has insufficient history", name))
	}
	for _, d := range []models.Domain{models.DomainQuant, models.DomainNarrative} {
		for _, name := range scores[d].Rejected {
			notes.Warnings = append(notes.Warnings, fmt.Sprintf("component %s rejected", name))
		}
	}

	syn, err := e.synth.Synthesize(scores)
	if err != nil {
		e.metrics.RecordEvaluation(ResultFailed)
		e.metrics.RecordError("synthesis")
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	e.metrics.RecordIndex(syn.Index, syn.Qualifies)

	tr, persistErr := e.persist(ctx, syn.Qualifies, now, log)
	counter := 0
	if persistErr != nil {
		notes.Degradations = append(notes.Degradations, NotePersistenceUnavailable)
		e.metrics.RecordError("persistence")
		log.Error("persistence state not updated", applogger.Error(persistErr))
		persistErr = fmt.Errorf("%w: %w", domrepo.ErrPersistenceUnavailable, persistErr)
	} else {
		counter = tr.Next.Counter
		e.metrics.RecordCounter(counter)
		if tr.Decayed {
			notes.Warnings = append(notes.Warnings, fmt.Sprintf("persistence counter %d decayed", tr.Prior.Counter))
		}
	}

	decision := trigger.Decide(syn.Index, counter, persistErr == nil, e.cfg.Thresholds)
	artifact := trigger.BuildArtifact(trigger.ArtifactInput{
		RunID:       runID,
		Now:         now,
		Synthesis:   syn,
		Domains:     scores,
		Instruments: signals.Instruments,
		Coverage:    coverage,
		Transition:  tr,
		Decision:    decision,
		Thresholds:  e.cfg.Thresholds,
		Notes:       notes,
	})

	outcome := &models.Outcome{Artifact: artifact, Transition: tr}
	if decision.Fired || e.cfg.EmitDiagnostics {
		outcome.Sinks = e.deliver(ctx, artifact, log)
	}
	if decision.Fired {
		e.metrics.RecordTrigger()
		if e.runIDs != nil {
			if err := e.runIDs.SaveLastRunID(ctx, e.cfg.PersistenceKey, runID); err != nil {
				e.metrics.RecordError("run_id")
				log.Warn("last run id not saved", applogger.Error(err))
			}
		}
	}
	if e.evalLog != nil {
		if err := e.evalLog.Append(ctx, artifact); err != nil {
			e.metrics.RecordError("evaluation_log")
			log.Warn("evaluation not logged", applogger.Error(err))
		}
	}

	e.mu.Lock()
	e.latest = artifact
	e.mu.Unlock()

	outcome.Duration = time.Since(start)
	e.metrics.RecordLatency("evaluate", outcome.Duration.Seconds())
	switch {
	case persistErr != nil:
		e.metrics.RecordEvaluation(ResultDegraded)
	case decision.Fired:
		e.metrics.RecordEvaluation(ResultFired)
	default:
		e.metrics.RecordEvaluation(ResultQuiet)
	}

	log.Info("evaluation complete",
		applogger.String("variant", syn.Variant),
		applogger.Float64("nti", syn.Index),
		applogger.Bool("qualifies", syn.Qualifies),
		applogger.Int("counter", counter),
		applogger.Bool("fired", decision.Fired),
		applogger.String("reason", decision.Reason),
		applogger.Int("analyzed", len(coverage.Analyzed)),
		applogger.Int("excluded", len(coverage.Excluded)),
		applogger.Duration("duration_ms", outcome.Duration),
	)
	return outcome, persistErr
}

func (e *Evaluator) ingestPrices(ctx context.Context) (map[string][]float64, models.DataCoverage, error) {
	coverage := models.DataCoverage{ReasonExcluded: make(map[string]string)}

	fetched, err := e.prices.FetchPrices(ctx, e.cfg.Universe)
	if err != nil {
		return nil, coverage, fmt.Errorf("%w: fetch prices: %w", domrepo.ErrNoUsableInstruments, err)
	}

	exclude := func(sym, reason string) {
		coverage.Excluded = append(coverage.Excluded, sym)
		coverage.ReasonExcluded[sym] = reason
		e.metrics.RecordExcluded("price", reason)
	}

	usable := make(map[string][]float64, len(e.cfg.Universe))
	for _, sym := range e.cfg.Universe {
		f, ok := fetched[sym]
		switch {
		case !ok:
			exclude(sym, models.ReasonNotReturned)
		case f.Status != models.FetchOK:
			reason := f.Reason
			if reason == "" {
				reason = models.ReasonFetchFailed
			}
			exclude(sym, reason)
		default:
			clean := models.CleanSeries(f.Prices)
			if len(clean) < 2 {
				exclude(sym, models.ReasonInsufficientHistory)
				continue
			}
			usable[sym] = clean
			coverage.Analyzed = append(coverage.Analyzed, sym)
		}
	}
	sort.Strings(coverage.Analyzed)
	sort.Strings(coverage.Excluded)

	if len(usable) == 0 {
		return nil, coverage, fmt.Errorf("%w: %d of %d instruments excluded", domrepo.ErrNoUsableInstruments, len(coverage.Excluded), len(e.cfg.Universe))
	}
	return usable, coverage, nil
}

func (e *Evaluator) ingestDocuments(ctx context.Context, symbols []string, notes *models.Notes, log *applogger.Logger) map[string]models.DocumentSet {
	if e.docs == nil {
		notes.Degradations = append(notes.Degradations, NoteNarrativeDisabled)
		return nil
	}

	fetched, err := e.docs.FetchDocuments(ctx, symbols)
	if err != nil {
		notes.Degradations = append(notes.Degradations, NoteNarrativeUnavailable)
		e.metrics.RecordError("ingest_documents")
		log.Warn("narrative ingestion failed", applogger.Error(err))
		return nil
	}

	out := make(map[string]models.DocumentSet, len(symbols))
	for _, sym := range symbols {
		f, ok := fetched[sym]
		switch {
		case !ok:
			e.excludeNarrative(sym, models.ReasonNotReturned, notes)
		case f.Status != models.FetchOK:
			reason := f.Reason
			if reason == "" {
				reason = models.ReasonFetchFailed
			}
			e.excludeNarrative(sym, reason, notes)
		default:
			out[sym] = f.Docs
		}
	}
	if len(out) == 0 && len(symbols) > 0 {
		notes.Degradations = append(notes.Degradations, NoteNarrativeUnavailable)
	}
	return out
}

func (e *Evaluator) excludeNarrative(sym, reason string, notes *models.Notes) {
	notes.Warnings = append(notes.Warnings, fmt.Sprintf("narrative excluded %s: %s", sym, reason))
	e.metrics.RecordExcluded("narrative", reason)
}

// persist reads the state, applies the transition and swaps it in. A
// conflicting writer forces a re-read, up to CASRetries extra attempts.
func (e *Evaluator) persist(ctx context.Context, qualifies bool, now time.Time, log *applogger.Logger) (*models.Transition, error) {
	key := e.cfg.PersistenceKey
	for attempt := 0; ; attempt++ {
		prior, err := e.state.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		tr := persistence.Transition(prior, qualifies, now, e.cfg.Thresholds.DecayWindow)
		err = e.state.CompareAndSwap(ctx, key, prior.Version, tr.Next)
		if err == nil {
			tr.Next.Version = prior.Version + 1
			return &tr, nil
		}
		if !errors.Is(err, domrepo.ErrStateConflict) || attempt >= e.cfg.CASRetries {
			return nil, err
		}
		log.Warn("persistence state changed concurrently, retrying",
			applogger.String("key", key),
			applogger.Int("attempt", attempt+1),
		)
	}
}

// deliver writes the artifact to every sink and returns the names of the
// sinks that accepted it. A failing sink does not stop the others.
func (e *Evaluator) deliver(ctx context.Context, a *models.TriggerArtifact, log *applogger.Logger) []string {
	written := make([]string, 0, len(e.sinks))
	for _, s := range e.sinks {
		start := time.Now()
		if err := s.Write(ctx, a); err != nil {
			e.metrics.RecordError("sink_" + s.Name())
			log.Error("artifact sink failed", applogger.String("sink", s.Name()), applogger.Error(err))
			continue
		}
		e.metrics.RecordLatency("sink_"+s.Name(), time.Since(start).Seconds())
		written = append(written, s.Name())
	}
	return written
}

type nopMetrics struct{}

func (nopMetrics) RecordEvaluation(string)       {}
func (nopMetrics) RecordIndex(float64, bool)     {}
func (nopMetrics) RecordCounter(int)             {}
func (nopMetrics) RecordTrigger()                {}
func (nopMetrics) RecordExcluded(string, string) {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}
