package usecase

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"NTIWatch/internal/domain/models"
	"NTIWatch/internal/services/narrative"
	"NTIWatch/internal/services/quant"
)

// SignalParams are the window sizes of the quant signals.
type SignalParams struct {
	ZScoreHorizons      []int
	RealizedWindow      int
	EMAWindow           int
	MeanReversionWindow int
	TailAlpha           float64
	CorrelationWindow   int
	Workers             int
}

// SignalSet is the joined output of one SignalEngine pass.
// Quant and Narrative hold one value per component, averaged over
// instruments. Narrative is empty when no instrument had documents.
type SignalSet struct {
	Instruments map[string]models.InstrumentSignals
	Quant       map[string]float64
	Narrative   map[string]float64
	// Uncovered lists quant components no instrument had history for.
	Uncovered []string
}

// SignalEngine computes per-instrument signals concurrently and joins them
// before the cross-sectional correlation signal.
type SignalEngine struct {
	params SignalParams
	lex    narrative.Lexicon
}

func NewSignalEngine(params SignalParams, lex narrative.Lexicon) *SignalEngine {
	if params.Workers < 1 {
		params.Workers = 1
	}
	return &SignalEngine{params: params, lex: lex}
}

// Compute never mutates prices or docs. Instruments missing from docs get
// no narrative values.
func (e *SignalEngine) Compute(ctx context.Context, prices map[string][]float64, docs map[string]models.DocumentSet) (SignalSet, error) {
	symbols := make([]string, 0, len(prices))
	for sym := range prices {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	slots := make([]models.InstrumentSignals, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.params.Workers)
	for i, sym := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = e.instrument(sym, prices[sym], docs[sym])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SignalSet{}, err
	}

	out := SignalSet{
		Instruments: make(map[string]models.InstrumentSignals, len(slots)),
		Quant:       make(map[string]float64),
		Narrative:   make(map[string]float64),
	}
	if len(slots) == 0 {
		return out, nil
	}

	var zs, vols, mrs, tails, sents, confs, bursts []float64
	for _, s := range slots {
		out.Instruments[s.Symbol] = s
		p := prices[s.Symbol]
		if quant.HasZScoreHistory(p, e.params.ZScoreHorizons) {
			zs = append(zs, s.ZScore)
		}
		if quant.HasVolatilityHistory(p, e.params.RealizedWindow, e.params.EMAWindow) {
			vols = append(vols, s.Volatility)
		}
		if quant.HasMeanReversionHistory(p, e.params.MeanReversionWindow) {
			mrs = append(mrs, s.MeanReversion)
		}
		if quant.HasTailHistory(p, e.params.TailAlpha) {
			tails = append(tails, s.TailRisk)
		}
		if s.Sentiment != nil {
			sents = append(sents, *s.Sentiment)
			confs = append(confs, *s.Conflict)
			bursts = append(bursts, *s.RelevanceBurst)
		}
	}

	// Components without history are left out so the quant domain reports
	// no evidence instead of a calm zero.
	out.addQuant(models.CompPrice, zs)
	out.addQuant(models.CompVolatility, vols)
	out.addQuant(models.CompMeanRevert, mrs)
	out.addQuant(models.CompTail, tails)
	if quant.HasCorrelationHistory(prices, e.params.CorrelationWindow) {
		out.Quant[models.CompCorrelation] = quant.CorrelationBreakdown(prices, e.params.CorrelationWindow)
	} else {
		out.Uncovered = append(out.Uncovered, models.CompCorrelation)
	}

	if len(sents) > 0 {
		out.Narrative[models.CompSentiment] = quant.Mean(sents)
		out.Narrative[models.CompConflict] = quant.Mean(confs)
		out.Narrative[models.CompBurst] = quant.Mean(bursts)
	}
	return out, nil
}

func (s *SignalSet) addQuant(name string, values []float64) {
	if len(values) == 0 {
		s.Uncovered = append(s.Uncovered, name)
		return
	}
	s.Quant[name] = quant.Mean(values)
}

func (e *SignalEngine) instrument(symbol string, prices []float64, docs models.DocumentSet) models.InstrumentSignals {
	s := models.InstrumentSignals{
		Symbol:        symbol,
		Points:        len(prices),
		ZScore:        quant.ZScore(prices, e.params.ZScoreHorizons),
		Volatility:    quant.VolatilityRegime(prices, e.params.RealizedWindow, e.params.EMAWindow),
		MeanReversion: quant.MeanReversion(prices, e.params.MeanReversionWindow),
		TailRisk:      quant.TailRisk(prices, e.params.TailAlpha),
	}
	if docs.Empty() {
		return s
	}
	sent := narrative.Sentiment(docs.Current, e.lex)
	conf := narrative.Conflict(docs.Current, e.lex)
	burst := narrative.RelevanceBurst(docs.Current, docs.Baseline)
	s.Sentiment, s.Conflict, s.RelevanceBurst = &sent, &conf, &burst
	return s
}
