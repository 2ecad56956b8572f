package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisCapacityLocker(client, 5*time.Second), mr
}

func TestWithCapacityLockRunsCriticalSection(t *testing.T) {
	locker, _ := newTestLocker(t)

	ran := false
	err := locker.WithCapacityLock(context.Background(), uuid.New(), "2025-06-10", func(ctx context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestWithCapacityLockIsExclusivePerLocationDay(t *testing.T) {
	locker, _ := newTestLocker(t)
	locationID := uuid.New()

	err := locker.WithCapacityLock(context.Background(), locationID, "2025-06-10", func(ctx context.Context) error {
		// Same location and day: the inner attempt must bounce.
		inner := locker.WithCapacityLock(ctx, locationID, "2025-06-10", func(context.Context) error {
			t.Fatal("critical section entered twice")
			return nil
		})
		assert.ErrorIs(t, inner, ErrLockNotAcquired)

		// A different day of the same location is an independent lock.
		return locker.WithCapacityLock(ctx, locationID, "2025-06-11", func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithCapacityLockReleasesAfterUse(t *testing.T) {
	locker, _ := newTestLocker(t)
	locationID := uuid.New()

	for i := 0; i < 3; i++ {
		err := locker.WithCapacityLock(context.Background(), locationID, "2025-06-10", func(context.Context) error {
			return nil
		})
		require.NoError(t, err, "lock should be free again on attempt %d", i)
	}
}

func TestWithCapacityLockReleasesOnError(t *testing.T) {
	locker, _ := newTestLocker(t)
	locationID := uuid.New()
	boom := errors.New("boom")

	err := locker.WithCapacityLock(context.Background(), locationID, "2025-06-10", func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = locker.WithCapacityLock(context.Background(), locationID, "2025-06-10", func(context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}

func TestLockExpiresAfterTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	locker := NewRedisCapacityLocker(client, time.Second)
	locationID := uuid.New()

	err := locker.WithCapacityLock(context.Background(), locationID, "2025-06-10", func(ctx context.Context) error {
		mr.FastForward(2 * time.Second)
		// Lock fell off; a competitor can take it while we still run.
		return locker.WithCapacityLock(ctx, locationID, "2025-06-10", func(context.Context) error {
			return nil
		})
	})
	require.NoError(t, err)
}
