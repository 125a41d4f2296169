package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	require.Error(t, err)
}

func TestFieldsAndWith(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zl: zerolog.New(&buf)}

	l.Component("evaluator").Info("run complete",
		Float64("nti", 0.5),
		Int("counter", 2),
		Duration("took", 1500*time.Millisecond),
		Strings("excluded", []string{"A", "B"}),
		Bool("fired", false),
		Error(errors.New("boom")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "evaluator", got["component"])
	assert.Equal(t, 0.5, got["nti"])
	assert.Equal(t, float64(2), got["counter"])
	assert.Equal(t, float64(1500), got["took"])
	assert.Equal(t, "A, B", got["excluded"])
	assert.Equal(t, false, got["fired"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "run complete", got["message"])
}

func TestNewNop(t *testing.T) {
	assert.NotPanics(t, func() { NewNop().With(String("k", "v")).Error("ignored") })
}
