package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/services/narrative"
)

func TestSignalEngine_Compute(t *testing.T) {
	prices := map[string][]float64{
		"AAA": wave(60, 0),
		"BBB": wave(60, 1),
		"CCC": wave(60, 2),
	}
	docs := map[string]models.DocumentSet{
		"BBB": {Current: [][]string{{"surge", "crash"}}, Baseline: [][]string{{"quiet"}}},
	}

	set, err := testEngine().Compute(context.Background(), prices, docs)
	require.NoError(t, err)

	require.Len(t, set.Instruments, 3)
	assert.Equal(t, 60, set.Instruments["AAA"].Points)
	assert.Nil(t, set.Instruments["AAA"].Sentiment)
	require.NotNil(t, set.Instruments["BBB"].Conflict)

	assert.ElementsMatch(t,
		[]string{models.CompPrice, models.CompVolatility, models.CompMeanRevert, models.CompTail, models.CompCorrelation},
		keys(set.Quant))
	assert.ElementsMatch(t, []string{models.CompSentiment, models.CompConflict, models.CompBurst}, keys(set.Narrative))
	assert.InDelta(t, *set.Instruments["BBB"].Conflict, set.Narrative[models.CompConflict], 1e-12)

	for name, v := range set.Quant {
		assert.GreaterOrEqual(t, v, 0.0, name)
		assert.LessOrEqual(t, v, 1.0, name)
	}
}

func TestSignalEngine_WorkerCountDoesNotChangeResult(t *testing.T) {
	prices := map[string][]float64{
		"AAA": wave(80, 0),
		"BBB": wave(80, 0.7),
		"CCC": wave(80, 1.9),
		"DDD": wave(80, 2.4),
	}
	params := SignalParams{
		ZScoreHorizons:      []int{5, 20, 60},
		RealizedWindow:      20,
		EMAWindow:           10,
		MeanReversionWindow: 20,
		TailAlpha:           0.05,
		CorrelationWindow:   20,
	}

	serial := params
	serial.Workers = 1
	parallel := params
	parallel.Workers = 8

	a, err := NewSignalEngine(serial, narrative.DefaultLexicon()).Compute(context.Background(), prices, nil)
	require.NoError(t, err)
	b, err := NewSignalEngine(parallel, narrative.DefaultLexicon()).Compute(context.Background(), prices, nil)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Empty(t, a.Narrative)
}

func TestSignalEngine_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine().Compute(ctx, map[string][]float64{"AAA": wave(30, 0), "BBB": wave(30, 1)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSignalEngine_ShortHistoryLeavesQuantUncovered(t *testing.T) {
	prices := map[string][]float64{
		"AAA": wave(60, 0),
		"BBB": {100, 101},
	}
	set, err := testEngine().Compute(context.Background(), prices, nil)
	require.NoError(t, err)

	// BBB does not dilute the means and correlation needs two long series.
	assert.Equal(t, []string{models.CompCorrelation}, set.Uncovered)
	assert.NotContains(t, set.Quant, models.CompCorrelation)
	assert.InDelta(t, set.Instruments["AAA"].ZScore, set.Quant[models.CompPrice], 1e-12)
	assert.InDelta(t, set.Instruments["AAA"].TailRisk, set.Quant[models.CompTail], 1e-12)

	short, err := testEngine().Compute(context.Background(), map[string][]float64{"BBB": {100, 101}}, nil)
	require.NoError(t, err)
	assert.Empty(t, short.Quant)
	assert.ElementsMatch(t,
		[]string{models.CompPrice, models.CompVolatility, models.CompMeanRevert, models.CompTail, models.CompCorrelation},
		short.Uncovered)
}

func TestSignalEngine_Empty(t *testing.T) {
	set, err := testEngine().Compute(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, set.Instruments)
	assert.Empty(t, set.Quant)
}

func keys(m map[string]float64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
