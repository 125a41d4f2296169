package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations *prometheus.CounterVec
	index       prometheus.Gauge
	qualifying  *prometheus.CounterVec
	counter     prometheus.Gauge
	triggers    prometheus.Counter
	excluded    *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New registers the recorder's collectors with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ntiwatch_evaluations_total",
				Help: "Evaluations by result",
			},
			[]string{"result"},
		),
		index: f.NewGauge(prometheus.GaugeOpts{
			Name: "ntiwatch_composite_index",
			Help: "Composite index of the last evaluation",
		}),
		qualifying: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ntiwatch_qualification_total",
				Help: "Synthesizer verdicts",
			},
			[]string{"qualifies"},
		),
		counter: f.NewGauge(prometheus.GaugeOpts{
			Name: "ntiwatch_persistence_counter",
			Help: "Consecutive qualifying evaluations after the last run",
		}),
		triggers: f.NewCounter(prometheus.CounterOpts{
			Name: "ntiwatch_triggers_total",
			Help: "Evaluations that fired",
		}),
		excluded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ntiwatch_instruments_excluded_total",
				Help: "Instruments excluded from an evaluation",
			},
			[]string{"kind", "reason"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ntiwatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ntiwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordEvaluation counts a finished evaluation by result.
func (r *Recorder) RecordEvaluation(result string) {
	r.evaluations.WithLabelValues(result).Inc()
}

// RecordIndex stores the latest composite index and verdict.
func (r *Recorder) RecordIndex(index float64, qualifies bool) {
	r.index.Set(index)
	r.qualifying.WithLabelValues(strconv.FormatBool(qualifies)).Inc()
}

func (r *Recorder) RecordCounter(counter int) {
	r.counter.Set(float64(counter))
}

func (r *Recorder) RecordTrigger() {
	r.triggers.Inc()
}

// RecordExcluded counts an instrument dropped from a run.
func (r *Recorder) RecordExcluded(kind, reason string) {
	r.excluded.WithLabelValues(kind, reason).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
