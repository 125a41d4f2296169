package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domrepo "NTIWatch/internal/domain/repository"
)

func TestSplitDocuments(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	stamps := []time.Time{cutoff.Add(time.Hour), cutoff, cutoff.Add(-time.Minute)}
	docs := [][]string{{"a"}, {"b"}, {"c"}}

	set := SplitDocuments(stamps, docs, cutoff, 0)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, set.Current)
	assert.Equal(t, [][]string{{"c"}}, set.Baseline)
}

func TestSplitDocuments_LimitPerWindow(t *testing.T) {
	cutoff := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var (
		stamps []time.Time
		docs   [][]string
	)
	// Newest first: a busy current window followed by two baseline docs.
	for i := 0; i < 6; i++ {
		stamps = append(stamps, cutoff.Add(time.Duration(6-i)*time.Minute))
		docs = append(docs, []string{"cur"})
	}
	stamps = append(stamps, cutoff.Add(-time.Hour), cutoff.Add(-2*time.Hour))
	docs = append(docs, []string{"old1"}, []string{"old2"})

	set := SplitDocuments(stamps, docs, cutoff, 4)
	assert.Len(t, set.Current, 4)
	assert.Equal(t, [][]string{{"old1"}, {"old2"}}, set.Baseline)
}

func TestDocumentsQuery_LimitsEachWindow(t *testing.T) {
	q := DocumentsQuery("ntiwatch.news_tokens")
	assert.Contains(t, q, "FROM ntiwatch.news_tokens")
	assert.Contains(t, q, "LIMIT ? BY ts >= ?")
	assert.Equal(t, 5, strings.Count(q, "?"))
}

func TestPriceTable(t *testing.T) {
	assert.Equal(t, "prices_1h", PriceTable("prices_", domrepo.TF1h))
	assert.Equal(t, "prices_1d", PriceTable("prices_", domrepo.TF1d))
}

func TestClosesQuery_ReadsMergedBars(t *testing.T) {
	q := closesQuery("ntiwatch.prices_1d")
	assert.Contains(t, q, "FROM ntiwatch.prices_1d FINAL")
	assert.Contains(t, q, "ORDER BY bucket DESC")
}

func TestSchemaStatements(t *testing.T) {
	stmts := SchemaStatements("ntiwatch", "prices_", "news_tokens", "nti_evaluations")
	require.Len(t, stmts, 5)
	assert.Equal(t, "CREATE DATABASE IF NOT EXISTS ntiwatch", stmts[0])
	assert.True(t, strings.Contains(stmts[1], "ntiwatch.prices_1h"))
	assert.True(t, strings.Contains(stmts[4], "ntiwatch.nti_evaluations"))
}

func TestReverseFloats(t *testing.T) {
	assert.Equal(t, []float64{3, 2, 1}, reverseFloats([]float64{1, 2, 3}))
	assert.Empty(t, reverseFloats(nil))
}
