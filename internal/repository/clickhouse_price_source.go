package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	pkgch "NTIWatch/pkg/clickhouse"
	applogger "NTIWatch/pkg/logger"
)

var _ domrepo.PriceSource = (*CHPriceSource)(nil)

// CHPriceSource reads close prices from per-timeframe bar tables.
type CHPriceSource struct {
	db       *sql.DB
	l        *applogger.Logger
	prefix   string
	tf       domrepo.Timeframe
	lookback int
}

func NewCHPriceSource(ch *pkgch.Client, tablePrefix string, tf domrepo.Timeframe, lookback int) *CHPriceSource {
	return &CHPriceSource{
		db:       ch.DB(),
		prefix:   tablePrefix,
		tf:       domrepo.NormalizeTimeframe(string(tf)),
		lookback: lookback,
	}
}

// SetLogger injects a structured logger.
func (s *CHPriceSource) SetLogger(l *applogger.Logger) { s.l = l }

// FetchPrices returns one entry per requested symbol. Query failures and
// empty histories are reported per symbol; only a cancelled context aborts.
func (s *CHPriceSource) FetchPrices(ctx context.Context, symbols []string) (map[string]models.PriceFetch, error) {
	table := PriceTable(s.prefix, s.tf)
	out := make(map[string]models.PriceFetch, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prices, err := s.latestCloses(ctx, table, sym)
		switch {
		case err != nil:
			out[sym] = models.PriceFailed(sym, models.ReasonFetchFailed)
		case len(prices) == 0:
			out[sym] = models.PriceFailed(sym, models.ReasonNoData)
		default:
			out[sym] = models.PriceOK(sym, prices)
		}
	}
	return out, nil
}

// closesQuery reads the newest bars of one symbol. FINAL collapses bars the
// ReplacingMergeTree has not merged yet.
func closesQuery(table string) string {
	const qtpl = `
        SELECT close
        FROM %s FINAL
        WHERE symbol = ?
        ORDER BY bucket DESC
        LIMIT ?
    `
	return fmt.Sprintf(qtpl, table)
}

func (s *CHPriceSource) latestCloses(ctx context.Context, table, symbol string) ([]float64, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, closesQuery(table), symbol, s.lookback)
	if err != nil {
		s.logErr("clickhouse latest_closes query error", table, symbol, err)
		return nil, fmt.Errorf("latest closes: %w", err)
	}
	defer rows.Close()

	desc := make([]float64, 0, s.lookback)
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			s.logErr("clickhouse latest_closes scan error", table, symbol, err)
			return nil, fmt.Errorf("scan close: %w", err)
		}
		desc = append(desc, c)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse latest_closes rows error", table, symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}

	if s.l != nil {
		s.l.Debug("clickhouse latest_closes ok",
			applogger.String("table", table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(desc)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return reverseFloats(desc), nil
}

func (s *CHPriceSource) logErr(msg, table, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", table),
		applogger.String("symbol", symbol),
		applogger.String("tf", string(s.tf)),
		applogger.Int("limit", s.lookback),
		applogger.Error(err),
	)
}

// PriceTable returns the bar table for a timeframe, e.g. prices_1d.
func PriceTable(prefix string, tf domrepo.Timeframe) string {
	return prefix + string(domrepo.NormalizeTimeframe(string(tf)))
}

// reverseFloats flips a newest-first slice to oldest-first in place.
func reverseFloats(xs []float64) []float64 {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
	return xs
}
