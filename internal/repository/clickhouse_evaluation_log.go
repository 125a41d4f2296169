package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	pkgch "NTIWatch/pkg/clickhouse"
	applogger "NTIWatch/pkg/logger"
)

var _ domrepo.EvaluationLog = (*CHEvaluationLog)(nil)

// CHEvaluationLog appends one row per evaluation.
type CHEvaluationLog struct {
	db    *sql.DB
	l     *applogger.Logger
	table string
}

func NewCHEvaluationLog(ch *pkgch.Client, table string) *CHEvaluationLog {
	return &CHEvaluationLog{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHEvaluationLog) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHEvaluationLog) Append(ctx context.Context, a *models.TriggerArtifact) error {
	start := time.Now()
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	q := fmt.Sprintf(`INSERT INTO %s
        (run_id, ts, variant, nti, qualifies, counter, persisted, fired, reason, assets_analyzed, assets_excluded, artifact)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table)
	_, err = s.db.ExecContext(ctx, q,
		a.Meta.RunID,
		a.Meta.Timestamp,
		a.Synthesis.Variant,
		a.Decision.NTI,
		boolToUInt8(a.Decision.Qualifies),
		uint32(a.Decision.PersistenceObserved),
		boolToUInt8(a.Decision.Persisted),
		boolToUInt8(a.Decision.Fired),
		a.Decision.Reason,
		uint32(len(a.DataCoverage.Analyzed)),
		uint32(len(a.DataCoverage.Excluded)),
		string(body),
	)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse evaluation insert error",
				applogger.String("table", s.table),
				applogger.String("run_id", a.Meta.RunID),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("append evaluation: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse evaluation insert ok",
			applogger.String("run_id", a.Meta.RunID),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// SchemaStatements returns idempotent DDL for every table the adapters use.
func SchemaStatements(database, pricePrefix, documentTable, evaluationTable string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	for _, tf := range []domrepo.Timeframe{domrepo.TF1h, domrepo.TF1d} {
		stmts = append(stmts, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            bucket DateTime,
            symbol LowCardinality(String),
            close Float64
        ) ENGINE = ReplacingMergeTree ORDER BY (symbol, bucket)`, database, PriceTable(pricePrefix, tf)))
	}
	stmts = append(stmts,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            ts DateTime,
            symbol LowCardinality(String),
            tokens Array(String)
        ) ENGINE = MergeTree ORDER BY (symbol, ts)`, database, documentTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
            run_id String,
            ts DateTime64(3, 'UTC'),
            variant LowCardinality(String),
            nti Float64,
            qualifies UInt8,
            counter UInt32,
            persisted UInt8,
            fired UInt8,
            reason String,
            assets_analyzed UInt32,
            assets_excluded UInt32,
            artifact String
        ) ENGINE = MergeTree ORDER BY ts`, database, evaluationTable),
	)
	return stmts
}
