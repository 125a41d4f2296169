package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordEvaluation("no_trigger")
	r.RecordEvaluation("no_trigger")
	r.RecordEvaluation("triggered")
	r.RecordIndex(0.42, false)
	r.RecordCounter(2)
	r.RecordTrigger()
	r.RecordExcluded("price", "fetch_failed")
	r.RecordError("state_store")
	r.RecordLatency("evaluate", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.evaluations.WithLabelValues("no_trigger")))
	assert.Equal(t, 0.42, testutil.ToFloat64(r.index))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.qualifying.WithLabelValues("false")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.counter))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.triggers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.excluded.WithLabelValues("price", "fetch_failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))
}
