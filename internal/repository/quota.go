package repository

import (
	"context"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	pkgcache "NTIWatch/pkg/cache"
	applogger "NTIWatch/pkg/logger"
)

var _ domrepo.DocumentSource = (*QuotaGate)(nil)

// QuotaGate skips narrative ingestion once the usage ledger of an external
// resource reaches maxUsage of its budget. The ledger lives in two keys,
// quota:<resource>:used and quota:<resource>:max. A resource without a
// budget is always admitted.
type QuotaGate struct {
	next     domrepo.DocumentSource
	cache    pkgcache.Service
	resource string
	maxUsage float64
	l        *applogger.Logger
}

func NewQuotaGate(next domrepo.DocumentSource, cache pkgcache.Service, resource string, maxUsage float64) *QuotaGate {
	return &QuotaGate{next: next, cache: cache, resource: resource, maxUsage: maxUsage}
}

// SetLogger injects a structured logger.
func (g *QuotaGate) SetLogger(l *applogger.Logger) { g.l = l }

func (g *QuotaGate) FetchDocuments(ctx context.Context, symbols []string) (map[string]models.DocumentFetch, error) {
	if !g.Admit(ctx) {
		out := make(map[string]models.DocumentFetch, len(symbols))
		for _, sym := range symbols {
			out[sym] = models.DocumentsFailed(sym, models.ReasonQuotaExhausted)
		}
		return out, nil
	}

	out, err := g.next.FetchDocuments(ctx, symbols)
	if err != nil {
		return nil, err
	}
	if _, err := g.cache.IncrementBy(ctx, g.usedKey(), int64(len(symbols))); err != nil && g.l != nil {
		g.l.Warn("quota usage not recorded",
			applogger.String("resource", g.resource),
			applogger.Error(err),
		)
	}
	return out, nil
}

// Admit reports whether the resource is below its usage ceiling. A ledger
// that cannot be read admits the call and logs a warning.
func (g *QuotaGate) Admit(ctx context.Context) bool {
	vals, err := pkgcache.MGetTyped[float64](ctx, g.cache, g.usedKey(), g.maxKey())
	if err != nil {
		if g.l != nil {
			g.l.Warn("quota ledger unavailable, admitting",
				applogger.String("resource", g.resource),
				applogger.Error(err),
			)
		}
		return true
	}

	max, ok := vals[g.maxKey()]
	if !ok || max <= 0 {
		return true
	}
	used := vals[g.usedKey()]
	usage := used / max
	if usage >= g.maxUsage {
		if g.l != nil {
			g.l.Warn("quota exhausted, skipping narrative ingestion",
				applogger.String("resource", g.resource),
				applogger.Float64("usage", usage),
				applogger.Float64("max_usage", g.maxUsage),
			)
		}
		return false
	}
	return true
}

func (g *QuotaGate) usedKey() string { return "quota:" + g.resource + ":used" }

func (g *QuotaGate) maxKey() string { return "quota:" + g.resource + ":max" }
