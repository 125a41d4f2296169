package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/repository"
)

const validYAML = `
environment: test
universe:
  symbols: [" spy ", "qqq", "SPY", ""]
synthesis:
  weights: {Q: 0.6, N: 0.4}
  strength_floor: 0.3
  strong_threshold: 0.7
  min_strong_domains: 2
  qualifying_threshold: 0.6
trigger:
  threshold: 0.7
  required_consecutive: 3
  decay_window: 24h
`

func TestParse_DefaultsAndNormalization(t *testing.T) {
	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ"}, c.Universe.Symbols)
	assert.Equal(t, "1d", c.Universe.Timeframe)
	assert.Equal(t, []int{5, 20, 60}, c.Signals.ZScoreHorizons)
	assert.Equal(t, 0.05, c.Signals.TailAlpha)
	assert.Equal(t, "gated_linear", c.Synthesis.Variant)
	assert.Equal(t, "nti_persistence", c.Persistence.Key)
	assert.Equal(t, 3, c.Persistence.CASRetries)
	assert.Equal(t, 24*time.Hour, *c.Trigger.DecayWindow)
	assert.Equal(t, 3, *c.Trigger.RequiredConsecutive)
	assert.Equal(t, 168*time.Hour, c.Narrative.BaselineWindow)
	assert.True(t, c.Sinks.File.Enabled)
}

func TestParse_ExplicitFalseSurvivesDefaults(t *testing.T) {
	c, err := Parse([]byte(validYAML + "server:\n  enabled: false\n"))
	require.NoError(t, err)
	assert.False(t, c.Server.Enabled)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing trigger threshold", `
universe: {symbols: [SPY]}
synthesis: {weights: {Q: 0.6, N: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {required_consecutive: 3, decay_window: 24h}
`},
		{"missing strength floor", `
universe: {symbols: [SPY]}
synthesis: {weights: {Q: 0.6, N: 0.4}, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 0.7, required_consecutive: 3, decay_window: 24h}
`},
		{"weights do not sum", `
universe: {symbols: [SPY]}
synthesis: {weights: {Q: 0.5, N: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 0.7, required_consecutive: 3, decay_window: 24h}
`},
		{"missing narrative weight", `
universe: {symbols: [SPY]}
synthesis: {weights: {Q: 0.6, S: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 0.7, required_consecutive: 3, decay_window: 24h}
`},
		{"empty universe", `
universe: {symbols: ["  "]}
synthesis: {weights: {Q: 0.6, N: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 0.7, required_consecutive: 3, decay_window: 24h}
`},
		{"threshold out of range", `
universe: {symbols: [SPY]}
synthesis: {weights: {Q: 0.6, N: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 1.7, required_consecutive: 3, decay_window: 24h}
`},
		{"short horizon", `
universe: {symbols: [SPY]}
signals: {zscore_horizons: [2, 20]}
synthesis: {weights: {Q: 0.6, N: 0.4}, strength_floor: 0.3, strong_threshold: 0.7, min_strong_domains: 2, qualifying_threshold: 0.6}
trigger: {threshold: 0.7, required_consecutive: 3, decay_window: 24h}
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, repository.ErrInvalidConfig)
		})
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("UNIVERSE", "aapl, msft")
	t.Setenv("NTI_TRIGGER_THRESHOLD", "0.8")
	t.Setenv("NTI_DECAY_WINDOW", "12h")
	t.Setenv("REDIS_ADDR", "redis:6380")

	c, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, c.Universe.Symbols)
	assert.Equal(t, 0.8, *c.Trigger.Threshold)
	assert.Equal(t, 12*time.Hour, *c.Trigger.DecayWindow)
	assert.Equal(t, "redis:6380", c.Redis.Addr)
}

func TestParse_BadEnv(t *testing.T) {
	t.Setenv("NTI_REQUIRED_CONSECUTIVE", "three")
	_, err := Parse([]byte(validYAML))
	assert.ErrorIs(t, err, repository.ErrInvalidConfig)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
