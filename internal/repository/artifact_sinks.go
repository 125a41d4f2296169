package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
)

var (
	_ domrepo.ArtifactSink = (*FileSink)(nil)
	_ domrepo.ArtifactSink = (*KafkaSink)(nil)
	_ domrepo.ArtifactSink = (*S3Sink)(nil)
)

// FileSink overwrites one JSON file per run. The file is replaced
// atomically so readers never see a partial artifact.
type FileSink struct {
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(_ context.Context, a *models.TriggerArtifact) error {
	body, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".trigger-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Publisher is what KafkaSink needs from pkg/kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value any, headers map[string]string) error
}

// KafkaSink publishes the artifact keyed by run id.
type KafkaSink struct {
	producer Publisher
	topic    string
}

func NewKafkaSink(producer Publisher, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, a *models.TriggerArtifact) error {
	return s.producer.Publish(ctx, s.topic, []byte(a.Meta.RunID), a, artifactHeaders(a))
}

// ObjectWriter is what S3Sink needs from pkg/s3.Client.
type ObjectWriter interface {
	PutJSON(ctx context.Context, key string, v any, metadata map[string]string) error
}

// S3Sink overwrites a fixed object key.
type S3Sink struct {
	store ObjectWriter
	key   string
}

func NewS3Sink(store ObjectWriter, key string) *S3Sink {
	return &S3Sink{store: store, key: key}
}

func (s *S3Sink) Name() string { return "s3" }

func (s *S3Sink) Write(ctx context.Context, a *models.TriggerArtifact) error {
	return s.store.PutJSON(ctx, s.key, a, artifactHeaders(a))
}

func artifactHeaders(a *models.TriggerArtifact) map[string]string {
	return map[string]string{
		"run-id":    a.Meta.RunID,
		"stage":     a.Meta.Stage,
		"version":   a.Meta.Version,
		"triggered": fmt.Sprintf("%t", a.Decision.Fired),
	}
}
