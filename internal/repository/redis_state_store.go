package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	pkgcache "NTIWatch/pkg/cache"
	applogger "NTIWatch/pkg/logger"
)

var (
	_ domrepo.StateStore = (*RedisStateStore)(nil)
	_ domrepo.RunIDStore = (*RedisStateStore)(nil)
)

// RedisStateStore keeps persistence state as a JSON value per key and
// guards compare-and-swap with WATCH/MULTI/EXEC.
type RedisStateStore struct {
	cache *pkgcache.RedisCache
	l     *applogger.Logger
}

func NewRedisStateStore(cache *pkgcache.RedisCache) *RedisStateStore {
	return &RedisStateStore{cache: cache}
}

// SetLogger injects a structured logger.
func (s *RedisStateStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *RedisStateStore) Read(ctx context.Context, key string) (models.PersistenceState, error) {
	var st models.PersistenceState
	err := s.cache.Get(ctx, key, &st)
	switch {
	case errors.Is(err, pkgcache.ErrCacheMiss):
		return models.PersistenceState{}, nil
	case err != nil:
		s.logErr("redis state read error", key, err)
		return models.PersistenceState{}, fmt.Errorf("%w: read %s: %v", domrepo.ErrStateUnavailable, key, err)
	}
	return st, nil
}

// Write stores st unconditionally with the next version.
func (s *RedisStateStore) Write(ctx context.Context, key string, st models.PersistenceState) error {
	st.Version++
	if err := s.cache.Set(ctx, key, st, 0); err != nil {
		s.logErr("redis state write error", key, err)
		return fmt.Errorf("%w: write %s: %v", domrepo.ErrStateUnavailable, key, err)
	}
	return nil
}

// CompareAndSwap writes next with version expected+1 only when the stored
// version is still expected.
func (s *RedisStateStore) CompareAndSwap(ctx context.Context, key string, expected int64, next models.PersistenceState) error {
	full := s.cache.Key(key)
	next.Version = expected + 1
	body, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	txf := func(tx *redis.Tx) error {
		current, err := readVersion(ctx, tx, full)
		if err != nil {
			return err
		}
		if current != expected {
			return domrepo.ErrStateConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, body, 0)
			return nil
		})
		return err
	}

	err = s.cache.Watch(ctx, txf, key)
	switch {
	case err == nil:
		if s.l != nil {
			s.l.Debug("redis state swapped",
				applogger.String("key", key),
				applogger.Int64("version", next.Version),
				applogger.Int("counter", next.Counter),
			)
		}
		return nil
	case errors.Is(err, domrepo.ErrStateConflict), errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s at version %d", domrepo.ErrStateConflict, key, expected)
	default:
		s.logErr("redis state swap error", key, err)
		return fmt.Errorf("%w: swap %s: %v", domrepo.ErrStateUnavailable, key, err)
	}
}

func (s *RedisStateStore) SaveLastRunID(ctx context.Context, key, runID string) error {
	if err := s.cache.Set(ctx, LastRunIDKey(key), runID, 0); err != nil {
		s.logErr("redis run id write error", key, err)
		return fmt.Errorf("%w: save run id: %v", domrepo.ErrStateUnavailable, err)
	}
	return nil
}

// LastRunID returns "" when no run has fired yet.
func (s *RedisStateStore) LastRunID(ctx context.Context, key string) (string, error) {
	var id string
	err := s.cache.Get(ctx, LastRunIDKey(key), &id)
	switch {
	case errors.Is(err, pkgcache.ErrCacheMiss):
		return "", nil
	case err != nil:
		return "", fmt.Errorf("%w: read run id: %v", domrepo.ErrStateUnavailable, err)
	}
	return id, nil
}

func (s *RedisStateStore) logErr(msg, key string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg, applogger.String("key", key), applogger.Error(err))
}

// LastRunIDKey is where the id of the last fired run is kept.
func LastRunIDKey(key string) string {
	return key + ":last_run_id"
}

func readVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var st models.PersistenceState
	if err := json.Unmarshal(raw, &st); err != nil {
		return 0, fmt.Errorf("decode state: %w", err)
	}
	return st.Version, nil
}
