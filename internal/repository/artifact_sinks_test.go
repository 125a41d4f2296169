package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
)

func sampleArtifact(runID string, fired bool) *models.TriggerArtifact {
	return &models.TriggerArtifact{
		Meta: models.ArtifactMeta{
			RunID:     runID,
			Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Stage:     "stage1",
			Version:   "1.1",
		},
		Decision: models.ArtifactDecision{NTI: 0.8, Fired: fired},
	}
}

func TestFileSink_OverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trigger_context.json")
	s := NewFileSink(path)

	require.NoError(t, s.Write(context.Background(), sampleArtifact("run-1", false)))
	require.NoError(t, s.Write(context.Background(), sampleArtifact("run-2", true)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got models.TriggerArtifact
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "run-2", got.Meta.RunID)
	assert.True(t, got.Decision.Fired)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type recordingPublisher struct {
	topic   string
	key     []byte
	headers map[string]string
	value   any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, key []byte, value any, headers map[string]string) error {
	p.topic, p.key, p.value, p.headers = topic, key, value, headers
	return nil
}

func TestKafkaSink_KeysByRunID(t *testing.T) {
	p := &recordingPublisher{}
	s := NewKafkaSink(p, "nti.triggers")

	require.NoError(t, s.Write(context.Background(), sampleArtifact("run-7", true)))
	assert.Equal(t, "nti.triggers", p.topic)
	assert.Equal(t, []byte("run-7"), p.key)
	assert.Equal(t, "true", p.headers["triggered"])
	assert.Equal(t, "stage1", p.headers["stage"])
}

type recordingObjects struct {
	key string
	err error
}

func (o *recordingObjects) PutJSON(_ context.Context, key string, _ any, _ map[string]string) error {
	o.key = key
	return o.err
}

func TestS3Sink_FixedKey(t *testing.T) {
	objects := &recordingObjects{err: errors.New("denied")}
	s := NewS3Sink(objects, "trigger_context.json")

	err := s.Write(context.Background(), sampleArtifact("run-3", true))
	require.Error(t, err)
	assert.Equal(t, "trigger_context.json", objects.key)
	assert.Equal(t, "s3", s.Name())
}
