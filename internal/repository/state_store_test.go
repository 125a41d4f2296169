package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NTIWatch/internal/domain/models"
	domrepo "NTIWatch/internal/domain/repository"
	pkgcache "NTIWatch/pkg/cache"
)

func newRedisStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := pkgcache.NewRedisCache(context.Background(),
		pkgcache.WithRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return NewRedisStateStore(c), mr
}

func TestRedisStateStore_ReadMissingIsZero(t *testing.T) {
	s, _ := newRedisStore(t)

	st, err := s.Read(context.Background(), "nti_persistence")
	require.NoError(t, err)
	assert.Equal(t, models.PersistenceState{}, st)
}

func TestRedisStateStore_CompareAndSwap(t *testing.T) {
	s, _ := newRedisStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	next := models.PersistenceState{Counter: 1, LastQualifying: &now, UpdatedAt: now}
	require.NoError(t, s.CompareAndSwap(ctx, "nti_persistence", 0, next))

	got, err := s.Read(ctx, "nti_persistence")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Counter)
	assert.Equal(t, int64(1), got.Version)
	require.NotNil(t, got.LastQualifying)
	assert.True(t, got.LastQualifying.Equal(now))

	t.Run("stale version conflicts", func(t *testing.T) {
		err := s.CompareAndSwap(ctx, "nti_persistence", 0, models.PersistenceState{Counter: 5})
		assert.ErrorIs(t, err, domrepo.ErrStateConflict)

		got, err := s.Read(ctx, "nti_persistence")
		require.NoError(t, err)
		assert.Equal(t, 1, got.Counter)
	})

	t.Run("current version succeeds", func(t *testing.T) {
		require.NoError(t, s.CompareAndSwap(ctx, "nti_persistence", 1, models.PersistenceState{Counter: 2}))
		got, err := s.Read(ctx, "nti_persistence")
		require.NoError(t, err)
		assert.Equal(t, 2, got.Counter)
		assert.Equal(t, int64(2), got.Version)
	})
}

func TestRedisStateStore_Unavailable(t *testing.T) {
	s, mr := newRedisStore(t)
	mr.Close()

	_, err := s.Read(context.Background(), "nti_persistence")
	assert.ErrorIs(t, err, domrepo.ErrStateUnavailable)

	err = s.CompareAndSwap(context.Background(), "nti_persistence", 0, models.PersistenceState{Counter: 1})
	assert.ErrorIs(t, err, domrepo.ErrStateUnavailable)
}

func TestRedisStateStore_LastRunID(t *testing.T) {
	s, mr := newRedisStore(t)
	ctx := context.Background()

	id, err := s.LastRunID(ctx, "nti_persistence")
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SaveLastRunID(ctx, "nti_persistence", "run-1"))
	assert.True(t, mr.Exists("ntiwatch:nti_persistence:last_run_id"))

	id, err = s.LastRunID(ctx, "nti_persistence")
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
}

func TestMemoryStateStore_CompareAndSwap(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	require.NoError(t, s.CompareAndSwap(ctx, "k", 0, models.PersistenceState{Counter: 1}))
	err := s.CompareAndSwap(ctx, "k", 0, models.PersistenceState{Counter: 9})
	assert.ErrorIs(t, err, domrepo.ErrStateConflict)

	st, err := s.Read(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Counter)
	assert.Equal(t, int64(1), st.Version)

	require.NoError(t, s.Write(ctx, "k", st))
	st, _ = s.Read(ctx, "k")
	assert.Equal(t, int64(2), st.Version)
}

func TestMemoryStateStore_ConcurrentSwapsSerialize(t *testing.T) {
	s := NewMemoryStateStore()
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.CompareAndSwap(ctx, "k", 0, models.PersistenceState{Counter: 1}) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
