package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	domsvc "NTIWatch/internal/domain/service"
	"NTIWatch/internal/handler/api"
	internalrepo "NTIWatch/internal/repository"
	"NTIWatch/internal/service/ratelimit"
	"NTIWatch/internal/services/narrative"
	"NTIWatch/internal/services/synthesis"
	"NTIWatch/internal/usecase"
	pkgcache "NTIWatch/pkg/cache"
	pkgch "NTIWatch/pkg/clickhouse"
	"NTIWatch/pkg/config"
	xhttp "NTIWatch/pkg/http"
	pkgkafka "NTIWatch/pkg/kafka"
	applogger "NTIWatch/pkg/logger"
	"NTIWatch/pkg/metrics"
	pkgs3 "NTIWatch/pkg/s3"
	"NTIWatch/pkg/server"
)

const connectTimeout = 10 * time.Second

// StateBackend is a StateStore that also remembers the last fired run.
type StateBackend interface {
	domrepo.StateStore
	domrepo.RunIDStore
}

// ArtifactSinks is the ordered list of enabled sinks.
type ArtifactSinks []domrepo.ArtifactSink

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideRedisCache connects to Redis when the state store or the quota
// gate needs it, and returns nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*pkgcache.RedisCache, func(), error) {
	needed := cfg.Persistence.Backend == "redis" || (cfg.Narrative.Enabled && cfg.Narrative.Quota.Enabled)
	if !needed {
		return nil, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	c, err := pkgcache.NewRedisCache(ctx,
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, 1),
		pkgcache.WithRedisTimeouts(cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvideStateBackend selects the persistence store.
func ProvideStateBackend(cfg *config.Config, cache *pkgcache.RedisCache, l *applogger.Logger) (StateBackend, error) {
	if cfg.Persistence.Backend == "memory" {
		l.Warn("persistence backend is in-memory, the counter resets on restart")
		return internalrepo.NewMemoryStateStore(), nil
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: redis is required for the redis persistence backend", domrepo.ErrInvalidConfig)
	}
	s := internalrepo.NewRedisStateStore(cache)
	s.SetLogger(l.Component("state"))
	return s, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil, fmt.Errorf("%w: clickhouse is required for price ingestion", domrepo.ErrInvalidConfig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts := internalrepo.SchemaStatements(cfg.ClickHouse.Database, cfg.ClickHouse.PriceTablePrefix,
		cfg.ClickHouse.DocumentTable, cfg.ClickHouse.EvaluationTable)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvidePriceSource reads bars from ClickHouse.
func ProvidePriceSource(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) domrepo.PriceSource {
	src := internalrepo.NewCHPriceSource(ch, cfg.ClickHouse.PriceTablePrefix,
		domrepo.NormalizeTimeframe(cfg.Universe.Timeframe), cfg.Universe.Lookback)
	src.SetLogger(l.Component("prices"))
	return src
}

// ProvideDocumentSource returns nil when the narrative domain is disabled.
// With a quota configured, ingestion goes through the quota gate.
func ProvideDocumentSource(cfg *config.Config, ch *pkgch.Client, cache *pkgcache.RedisCache, l *applogger.Logger) domrepo.DocumentSource {
	if !cfg.Narrative.Enabled {
		return nil
	}
	src := internalrepo.NewCHDocumentSource(ch, cfg.ClickHouse.DocumentTable,
		cfg.Narrative.CurrentWindow, cfg.Narrative.BaselineWindow, cfg.Narrative.MaxDocuments)
	src.SetLogger(l.Component("documents"))
	if !cfg.Narrative.Quota.Enabled || cache == nil {
		return src
	}
	gate := internalrepo.NewQuotaGate(src, cache, cfg.Narrative.Quota.Resource, cfg.Narrative.Quota.MaxUsage)
	gate.SetLogger(l.Component("quota"))
	return gate
}

// ProvideEvaluationLog returns nil when the history table is disabled.
func ProvideEvaluationLog(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) domrepo.EvaluationLog {
	if !cfg.EvaluationLog.Enabled {
		return nil
	}
	el := internalrepo.NewCHEvaluationLog(ch, cfg.ClickHouse.Database+"."+cfg.ClickHouse.EvaluationTable)
	el.SetLogger(l.Component("evaluation_log"))
	return el
}

// ProvideKafkaProducer returns nil unless the Kafka sink is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Sinks.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, func() { _ = producer.Close() }, nil
}

// ProvideS3Client returns nil unless the S3 sink is enabled.
func ProvideS3Client(cfg *config.Config) (*pkgs3.Client, error) {
	if !cfg.Sinks.S3.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	s3 := cfg.Sinks.S3
	client, err := pkgs3.New(ctx,
		pkgs3.WithEndpoint(s3.Endpoint, s3.UseSSL),
		pkgs3.WithRegion(s3.Region),
		pkgs3.WithBucket(s3.Bucket),
		pkgs3.WithCredentials(s3.AccessKey, s3.SecretKey),
		pkgs3.WithPathStyle(s3.ForcePathStyle),
	)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return client, nil
}

// ProvideArtifactSinks lists the enabled sinks in file, kafka, s3 order.
func ProvideArtifactSinks(cfg *config.Config, producer *pkgkafka.Producer, s3 *pkgs3.Client) ArtifactSinks {
	var sinks ArtifactSinks
	if cfg.Sinks.File.Enabled {
		sinks = append(sinks, internalrepo.NewFileSink(cfg.Sinks.File.Path))
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSink(producer, cfg.Sinks.Kafka.Topic))
	}
	if s3 != nil {
		sinks = append(sinks, internalrepo.NewS3Sink(s3, cfg.Sinks.S3.Key))
	}
	return sinks
}

// ProvideSynthesizer builds the configured synthesis variant.
func ProvideSynthesizer(cfg *config.Config) (domsvc.Synthesizer, error) {
	return synthesis.NewSynthesizer(SynthesisConfig(cfg))
}

// ProvideSignalEngine builds the signal engine with the configured lexicon.
func ProvideSignalEngine(cfg *config.Config) *usecase.SignalEngine {
	lex := narrative.DefaultLexicon()
	if len(cfg.Narrative.PositiveWords) > 0 || len(cfg.Narrative.NegativeWords) > 0 {
		lex = narrative.NewLexicon(cfg.Narrative.PositiveWords, cfg.Narrative.NegativeWords)
	}
	s := cfg.Signals
	return usecase.NewSignalEngine(usecase.SignalParams{
		ZScoreHorizons:      s.ZScoreHorizons,
		RealizedWindow:      s.RealizedWindow,
		EMAWindow:           s.EMAWindow,
		MeanReversionWindow: s.MeanReversionWindow,
		TailAlpha:           s.TailAlpha,
		CorrelationWindow:   s.CorrelationWindow,
		Workers:             s.Workers,
	}, lex)
}

// ProvideEvaluator assembles the evaluation pipeline.
func ProvideEvaluator(
	cfg *config.Config,
	prices domrepo.PriceSource,
	docs domrepo.DocumentSource,
	engine *usecase.SignalEngine,
	synth domsvc.Synthesizer,
	state StateBackend,
	sinks ArtifactSinks,
	evalLog domrepo.EvaluationLog,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.Evaluator, error) {
	opts := []usecase.EvaluatorOption{
		usecase.WithSinks(sinks...),
		usecase.WithRunIDStore(state),
		usecase.WithMetrics(m),
		usecase.WithLogger(l.Component("evaluator")),
	}
	if docs != nil {
		opts = append(opts, usecase.WithDocumentSource(docs))
	}
	if evalLog != nil {
		opts = append(opts, usecase.WithEvaluationLog(evalLog))
	}
	return usecase.NewEvaluator(usecase.EvaluatorConfig{
		Universe:        cfg.Universe.Symbols,
		PersistenceKey:  cfg.Persistence.Key,
		CASRetries:      cfg.Persistence.CASRetries,
		Thresholds:      Thresholds(cfg),
		EmitDiagnostics: cfg.Sinks.EmitDiagnostics,
	}, prices, engine, synth, state, opts...)
}

// ProvideScheduler wraps the evaluator in the cron scheduler.
func ProvideScheduler(cfg *config.Config, ev *usecase.Evaluator, l *applogger.Logger) (*usecase.Scheduler, error) {
	return usecase.NewScheduler(ev, cfg.Schedule.Cron, cfg.Schedule.Timeout, l)
}

// ProvideStatusHandler exposes state, the latest artifact and health checks.
func ProvideStatusHandler(
	cfg *config.Config,
	state StateBackend,
	ev *usecase.Evaluator,
	cache *pkgcache.RedisCache,
	ch *pkgch.Client,
	objects *pkgs3.Client,
	l *applogger.Logger,
) *api.StatusEchoHandler {
	h := api.NewStatusEchoHandler(l.Component("status"), state, state, ev, cfg.Persistence.Key, *cfg.Trigger.DecayWindow)
	if cache != nil {
		h.AddHealthCheck("redis", cache.Ping)
	}
	if ch != nil {
		h.AddHealthCheck("clickhouse", ch.Health)
	}
	if objects != nil {
		h.AddHealthCheck("s3", objects.Health)
	}
	if rl := cfg.Server.RateLimit; rl.Burst > 0 {
		h.SetRateLimiter(ratelimit.New(rl.Burst, rl.PerSecond))
	}
	return h
}

// ProvideHTTPServer returns nil when the status server is disabled.
func ProvideHTTPServer(cfg *config.Config, h *api.StatusEchoHandler, l *applogger.Logger) *xhttp.Server {
	if !cfg.Server.Enabled {
		return nil
	}
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(path, nil),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application.
func ProvideApp(cfg *config.Config, sched *usecase.Scheduler, srv *xhttp.Server, l *applogger.Logger) *server.App {
	return server.New(cfg, sched, srv, l)
}

// Thresholds maps the trigger and synthesis settings onto the values an
// artifact records.
func Thresholds(cfg *config.Config) models.Thresholds {
	return models.Thresholds{
		TriggerThreshold:    *cfg.Trigger.Threshold,
		QualifyingThreshold: *cfg.Synthesis.QualifyingThreshold,
		RequiredConsecutive: *cfg.Trigger.RequiredConsecutive,
		DecayWindow:         *cfg.Trigger.DecayWindow,
		StrengthFloor:       *cfg.Synthesis.StrengthFloor,
		StrongThreshold:     *cfg.Synthesis.StrongThreshold,
		MinStrongDomains:    *cfg.Synthesis.MinStrongDomains,
		Weights:             domainWeights(cfg.Synthesis.Weights),
	}
}

// SynthesisConfig maps the synthesis section onto the synthesizer settings.
func SynthesisConfig(cfg *config.Config) synthesis.Config {
	s := cfg.Synthesis
	return synthesis.Config{
		Variant:             s.Variant,
		Weights:             domainWeights(s.Weights),
		StrengthFloor:       *s.StrengthFloor,
		StrongThreshold:     *s.StrongThreshold,
		MinStrongDomains:    *s.MinStrongDomains,
		QualifyingThreshold: *s.QualifyingThreshold,
		MultiplierMin:       s.MultiplierMin,
		MultiplierMax:       s.MultiplierMax,
	}
}

func domainWeights(in map[string]float64) map[models.Domain]float64 {
	out := make(map[models.Domain]float64, len(in))
	for d, w := range in {
		out[models.Domain(d)] = w
	}
	return out
}
