package di

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
	internalrepo "NTIWatch/internal/repository"
	"NTIWatch/pkg/config"
	applogger "NTIWatch/pkg/logger"
	pkgs3 "NTIWatch/pkg/s3"
)

const testConfig = `
universe:
  symbols: [spy, qqq]
synthesis:
  weights: {Q: 0.7, N: 0.3}
  strength_floor: 0.2
  strong_threshold: 0.6
  min_strong_domains: 1
  qualifying_threshold: 0.5
trigger:
  threshold: 0.7
  required_consecutive: 3
  decay_window: 48h
persistence:
  backend: memory
`

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)
	return cfg
}

func TestThresholdsAndSynthesisConfig(t *testing.T) {
	cfg := loadTestConfig(t)

	th := Thresholds(cfg)
	assert.Equal(t, 0.7, th.TriggerThreshold)
	assert.Equal(t, 3, th.RequiredConsecutive)
	assert.Equal(t, 0.5, th.QualifyingThreshold)
	assert.Equal(t, 0.7, th.Weights[models.DomainQuant])

	sc := SynthesisConfig(cfg)
	assert.Equal(t, "gated_linear", sc.Variant)
	assert.Equal(t, 0.3, sc.Weights[models.DomainNarrative])
	assert.Equal(t, 0.75, sc.MultiplierMin)
	require.NoError(t, sc.Validate())
}

func TestProvideStateBackend(t *testing.T) {
	cfg := loadTestConfig(t)
	l := applogger.NewNop()

	backend, err := ProvideStateBackend(cfg, nil, l)
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.MemoryStateStore{}, backend)

	cfg.Persistence.Backend = "redis"
	_, err = ProvideStateBackend(cfg, nil, l)
	assert.Error(t, err)
}

func TestProvideRedisCache(t *testing.T) {
	cfg := loadTestConfig(t)

	c, cleanup, err := ProvideRedisCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, c)
	cleanup()

	mr := miniredis.RunT(t)
	cfg.Persistence.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()
	c, cleanup, err = ProvideRedisCache(cfg)
	require.NoError(t, err)
	require.NotNil(t, c)
	cleanup()
}

func TestProvideArtifactSinks(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Sinks.File.Path = filepath.Join(t.TempDir(), "trigger_context.json")

	sinks := ProvideArtifactSinks(cfg, nil, nil)
	require.Len(t, sinks, 1)
	assert.Equal(t, "file", sinks[0].Name())

	s3, err := pkgs3.New(t.Context(), pkgs3.WithBucket("artifacts"), pkgs3.WithAPI(nopObjects{}))
	require.NoError(t, err)
	cfg.Sinks.File.Enabled = false
	sinks = ProvideArtifactSinks(cfg, nil, s3)
	require.Len(t, sinks, 1)
	assert.Equal(t, "s3", sinks[0].Name())
}

type nopObjects struct{}

func (nopObjects) PutObject(context.Context, *awss3.PutObjectInput, ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	return &awss3.PutObjectOutput{}, nil
}

func (nopObjects) HeadBucket(context.Context, *awss3.HeadBucketInput, ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	return &awss3.HeadBucketOutput{}, nil
}

func TestProvideSignalEngineAndSynthesizer(t *testing.T) {
	cfg := loadTestConfig(t)
	assert.NotNil(t, ProvideSignalEngine(cfg))

	synth, err := ProvideSynthesizer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gated_linear", synth.Name())

	cfg.Synthesis.Variant = "gated_multiplicative"
	synth, err = ProvideSynthesizer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gated_multiplicative", synth.Name())
}

func TestProvideClickHouseClient_Disabled(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.ClickHouse.Enabled = false
	_, _, err := ProvideClickHouseClient(cfg)
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	_ = os.Unsetenv("UNIVERSE")
	os.Exit(m.Run())
}

func TestProvideScheduler_RunOnceWithoutCron(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Schedule.RunOnce = true
	cfg.Schedule.Cron = ""
	require.NoError(t, cfg.Validate())

	s, err := ProvideScheduler(cfg, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
