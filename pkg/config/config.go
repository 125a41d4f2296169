package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NTIWatch/internal/domain/repository"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
		RateLimit       struct {
			Burst     float64 `yaml:"burst" default:"20" validate:"gte=0"`
			PerSecond float64 `yaml:"per_second" default:"5" validate:"gte=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Schedule struct {
		Cron    string        `yaml:"cron" default:"0 */4 * * *"`
		RunOnce bool          `yaml:"run_once"`
		Timeout time.Duration `yaml:"timeout" default:"30m" validate:"gte=0"`
	} `yaml:"schedule"`
	Universe struct {
		Symbols   []string `yaml:"symbols"`
		Timeframe string   `yaml:"timeframe" default:"1d" validate:"oneof=1h 1d"`
		Lookback  int      `yaml:"lookback" default:"120" validate:"gte=2"`
	} `yaml:"universe"`
	Signals     SignalsConfig   `yaml:"signals"`
	Narrative   NarrativeConfig `yaml:"narrative"`
	Synthesis   SynthesisConfig `yaml:"synthesis"`
	Trigger     TriggerConfig   `yaml:"trigger"`
	Persistence struct {
		Backend    string `yaml:"backend" default:"redis" validate:"oneof=redis memory"`
		Key        string `yaml:"key" default:"nti_persistence" validate:"required"`
		CASRetries int    `yaml:"cas_retries" default:"3" validate:"gte=0"`
	} `yaml:"persistence"`
	Redis struct {
		Addr         string        `yaml:"addr" default:"localhost:6379"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size" default:"10"`
		DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"3s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"3s"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled" default:"true"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"ntiwatch"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		PriceTablePrefix string        `yaml:"price_table_prefix" default:"prices_"`
		DocumentTable    string        `yaml:"document_table" default:"news_tokens"`
		EvaluationTable  string        `yaml:"evaluation_table" default:"nti_evaluations"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Sinks struct {
		EmitDiagnostics bool `yaml:"emit_diagnostics"`
		File            struct {
			Enabled bool   `yaml:"enabled" default:"true"`
			Path    string `yaml:"path" default:"artifacts/trigger_context.json"`
		} `yaml:"file"`
		Kafka struct {
			Enabled bool   `yaml:"enabled"`
			Topic   string `yaml:"topic" default:"nti.triggers"`
		} `yaml:"kafka"`
		S3 struct {
			Enabled        bool   `yaml:"enabled"`
			Endpoint       string `yaml:"endpoint"`
			Region         string `yaml:"region" default:"us-east-1"`
			Bucket         string `yaml:"bucket"`
			AccessKey      string `yaml:"access_key"`
			SecretKey      string `yaml:"secret_key"`
			UseSSL         bool   `yaml:"use_ssl" default:"true"`
			ForcePathStyle bool   `yaml:"force_path_style"`
			Key            string `yaml:"key" default:"trigger_context.json"`
		} `yaml:"s3"`
	} `yaml:"sinks"`
	EvaluationLog struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"evaluation_log"`
}

// SignalsConfig holds the signal window sizes.
type SignalsConfig struct {
	Workers             int     `yaml:"workers" default:"4" validate:"gte=1"`
	ZScoreHorizons      []int   `yaml:"zscore_horizons" default:"[5,20,60]" validate:"min=1,dive,gte=3"`
	RealizedWindow      int     `yaml:"realized_window" default:"20" validate:"gte=2"`
	EMAWindow           int     `yaml:"ema_window" default:"10" validate:"gte=1"`
	MeanReversionWindow int     `yaml:"mean_reversion_window" default:"20" validate:"gte=1"`
	TailAlpha           float64 `yaml:"tail_alpha" default:"0.05" validate:"gt=0,lte=1"`
	CorrelationWindow   int     `yaml:"correlation_window" default:"20" validate:"gte=2"`
}

// NarrativeConfig controls document ingestion for the narrative domain.
type NarrativeConfig struct {
	Enabled        bool          `yaml:"enabled" default:"true"`
	CurrentWindow  time.Duration `yaml:"current_window" default:"24h"`
	BaselineWindow time.Duration `yaml:"baseline_window" default:"168h"`
	MaxDocuments   int           `yaml:"max_documents" default:"500" validate:"gte=1"`
	PositiveWords  []string      `yaml:"positive_words"`
	NegativeWords  []string      `yaml:"negative_words"`
	Quota          struct {
		Enabled  bool    `yaml:"enabled"`
		Resource string  `yaml:"resource" default:"news"`
		MaxUsage float64 `yaml:"max_usage" default:"0.95" validate:"gt=0,lte=1"`
	} `yaml:"quota"`
}

// SynthesisConfig has no defaults for weights and thresholds.
type SynthesisConfig struct {
	Variant             string             `yaml:"variant" default:"gated_linear" validate:"oneof=gated_linear gated_multiplicative"`
	Weights             map[string]float64 `yaml:"weights" validate:"required,min=2"`
	StrengthFloor       *float64           `yaml:"strength_floor" validate:"required,gte=0,lte=1"`
	StrongThreshold     *float64           `yaml:"strong_threshold" validate:"required,gte=0,lte=1"`
	MinStrongDomains    *int               `yaml:"min_strong_domains" validate:"required,gte=1"`
	QualifyingThreshold *float64           `yaml:"qualifying_threshold" validate:"required,gte=0,lte=1"`
	MultiplierMin       float64            `yaml:"multiplier_min" default:"0.75" validate:"gte=0"`
	MultiplierMax       float64            `yaml:"multiplier_max" default:"1.25" validate:"gte=0"`
}

// TriggerConfig has no defaults: a missing value is a startup failure.
type TriggerConfig struct {
	Threshold           *float64       `yaml:"threshold" validate:"required,gte=0,lte=1"`
	RequiredConsecutive *int           `yaml:"required_consecutive" validate:"required,gte=1"`
	DecayWindow         *time.Duration `yaml:"decay_window" validate:"required,gt=0"`
}

var validate = validator.New()

// Load reads a YAML configuration file on top of the defaults, applies
// environment overrides (a .env file is loaded first when present) and
// validates the result. Every validation error wraps ErrInvalidConfig.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load for an in-memory document.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	_ = godotenv.Load()
	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	c.Universe.Symbols = NormalizeSymbols(c.Universe.Symbols)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	setStr(&c.Environment, "NTI_ENV")
	setStr(&c.Log.Level, "LOG_LEVEL")
	setStr(&c.Persistence.Key, "NTI_PERSISTENCE_KEY")
	setStr(&c.Persistence.Backend, "NTI_PERSISTENCE_BACKEND")
	setStr(&c.Schedule.Cron, "NTI_SCHEDULE")
	setStr(&c.Redis.Addr, "REDIS_ADDR")
	setStr(&c.Redis.Password, "REDIS_PASSWORD")
	setStr(&c.ClickHouse.Host, "CLICKHOUSE_HOST")
	setStr(&c.ClickHouse.Password, "CLICKHOUSE_PASSWORD")
	setStr(&c.Sinks.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&c.Sinks.S3.SecretKey, "S3_SECRET_KEY")
	setList(&c.Universe.Symbols, "UNIVERSE")
	setList(&c.Kafka.Brokers, "KAFKA_BROKERS")

	if v := os.Getenv("NTI_RUN_ONCE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envErr("NTI_RUN_ONCE", err)
		}
		c.Schedule.RunOnce = b
	}
	if v := os.Getenv("NTI_TRIGGER_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return envErr("NTI_TRIGGER_THRESHOLD", err)
		}
		c.Trigger.Threshold = &f
	}
	if v := os.Getenv("NTI_REQUIRED_CONSECUTIVE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envErr("NTI_REQUIRED_CONSECUTIVE", err)
		}
		c.Trigger.RequiredConsecutive = &n
	}
	if v := os.Getenv("NTI_DECAY_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return envErr("NTI_DECAY_WINDOW", err)
		}
		c.Trigger.DecayWindow = &d
	}
	return nil
}

// Validate checks field rules and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", repository.ErrInvalidConfig, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", repository.ErrInvalidConfig, err)
	}

	if len(c.Universe.Symbols) == 0 {
		return fmt.Errorf("%w: %w", repository.ErrInvalidConfig, repository.ErrEmptyUniverse)
	}
	if !c.Schedule.RunOnce && strings.TrimSpace(c.Schedule.Cron) == "" {
		return invalid("schedule.cron is required unless schedule.run_once is set")
	}

	sum := 0.0
	for d, w := range c.Synthesis.Weights {
		if math.IsNaN(w) || w < 0 {
			return invalid("synthesis.weights.%s must be non-negative", d)
		}
		sum += w
	}
	if _, ok := c.Synthesis.Weights["Q"]; !ok {
		return invalid("synthesis.weights.Q is required")
	}
	if _, ok := c.Synthesis.Weights["N"]; !ok {
		return invalid("synthesis.weights.N is required")
	}
	if math.Abs(sum-1) > 1e-9 {
		return invalid("synthesis.weights must sum to 1, got %v", sum)
	}
	if c.Synthesis.MultiplierMax < c.Synthesis.MultiplierMin {
		return invalid("synthesis.multiplier_max must not be below multiplier_min")
	}

	if c.Narrative.Enabled && c.Narrative.BaselineWindow < c.Narrative.CurrentWindow {
		return invalid("narrative.baseline_window must cover narrative.current_window")
	}
	if c.Sinks.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return invalid("kafka.brokers is required when sinks.kafka is enabled")
	}
	if c.Sinks.S3.Enabled && c.Sinks.S3.Bucket == "" {
		return invalid("sinks.s3.bucket is required when sinks.s3 is enabled")
	}
	return nil
}

// NormalizeSymbols trims, upper-cases and de-duplicates symbols, keeping
// first-seen order.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repository.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func envErr(name string, err error) error {
	return fmt.Errorf("%w: env %s: %v", repository.ErrInvalidConfig, name, err)
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = strings.Split(v, ",")
	}
}
