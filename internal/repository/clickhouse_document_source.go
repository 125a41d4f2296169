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

var _ domrepo.DocumentSource = (*CHDocumentSource)(nil)

// CHDocumentSource reads tokenized documents and splits them into the
// current window and the older baseline.
type CHDocumentSource struct {
	db       *sql.DB
	l        *applogger.Logger
	table    string
	current  time.Duration
	baseline time.Duration
	limit    int
	now      func() time.Time
}

func NewCHDocumentSource(ch *pkgch.Client, table string, current, baseline time.Duration, limit int) *CHDocumentSource {
	return &CHDocumentSource{
		db:       ch.DB(),
		table:    table,
		current:  current,
		baseline: baseline,
		limit:    limit,
		now:      time.Now,
	}
}

// SetLogger injects a structured logger.
func (s *CHDocumentSource) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHDocumentSource) FetchDocuments(ctx context.Context, symbols []string) (map[string]models.DocumentFetch, error) {
	now := s.now().UTC()
	out := make(map[string]models.DocumentFetch, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		docs, err := s.fetch(ctx, sym, now)
		if err != nil {
			out[sym] = models.DocumentsFailed(sym, models.ReasonFetchFailed)
			continue
		}
		out[sym] = models.DocumentsOK(sym, docs)
	}
	return out, nil
}

func (s *CHDocumentSource) fetch(ctx context.Context, symbol string, now time.Time) (models.DocumentSet, error) {
	start := time.Now()
	cutoff := now.Add(-s.current)
	rows, err := s.db.QueryContext(ctx, DocumentsQuery(s.table), symbol, now.Add(-s.baseline), now, s.limit, cutoff)
	if err != nil {
		s.logErr("clickhouse documents query error", symbol, err)
		return models.DocumentSet{}, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()

	var (
		stamps []time.Time
		docs   [][]string
	)
	for rows.Next() {
		var (
			ts     time.Time
			tokens []string
		)
		if err := rows.Scan(&ts, &tokens); err != nil {
			s.logErr("clickhouse documents scan error", symbol, err)
			return models.DocumentSet{}, fmt.Errorf("scan document: %w", err)
		}
		stamps = append(stamps, ts)
		docs = append(docs, tokens)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse documents rows error", symbol, err)
		return models.DocumentSet{}, fmt.Errorf("rows: %w", err)
	}

	set := SplitDocuments(stamps, docs, cutoff, s.limit)
	if s.l != nil {
		s.l.Debug("clickhouse documents ok",
			applogger.String("symbol", symbol),
			applogger.Int("current", len(set.Current)),
			applogger.Int("baseline", len(set.Baseline)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return set, nil
}

func (s *CHDocumentSource) logErr(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

// DocumentsQuery selects the newest documents of one symbol, capped per
// window so a busy current window cannot crowd out the baseline.
// Arguments: symbol, from, to, limit, cutoff.
func DocumentsQuery(table string) string {
	const qtpl = `
        SELECT ts, tokens
        FROM %s
        WHERE symbol = ? AND ts >= ? AND ts <= ?
        ORDER BY ts DESC
        LIMIT ? BY ts >= ?
    `
	return fmt.Sprintf(qtpl, table)
}

// SplitDocuments puts documents stamped at or after cutoff in the current
// window and everything older in the baseline, keeping at most limit per
// window in input order. limit <= 0 keeps everything.
func SplitDocuments(stamps []time.Time, docs [][]string, cutoff time.Time, limit int) models.DocumentSet {
	var set models.DocumentSet
	for i, doc := range docs {
		if !stamps[i].Before(cutoff) {
			if limit <= 0 || len(set.Current) < limit {
				set.Current = append(set.Current, doc)
			}
		} else if limit <= 0 || len(set.Baseline) < limit {
			set.Baseline = append(set.Baseline, doc)
		}
	}
	return set
}
