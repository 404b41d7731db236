package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values     map[string]string
	releaseErr error
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if m.releaseErr != nil {
		return false, m.releaseErr
	}
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func TestRedisLockIsExclusive(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	first, err := NewRedisLock(store, "mkt:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "mkt:lock:cron-worker:test", time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "mkt:lock:cron-worker:test")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "mkt:lock:cron-worker:test")

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockExpiredKeyIsNotStolenBack(t *testing.T) {
	store := &memoryStore{values: map[string]string{}}
	stale, _ := NewRedisLock(store, "lock", time.Minute)
	ctx := context.Background()

	ok, err := stale.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// ttl elapsed and another worker took over
	store.values["lock"] = "someone-else"
	require.NoError(t, stale.Release(ctx))
	assert.Equal(t, "someone-else", store.values["lock"])
}

func TestRedisLockReleaseError(t *testing.T) {
	store := &memoryStore{values: map[string]string{}, releaseErr: errors.New("conn refused")}
	lock, _ := NewRedisLock(store, "lock", 0)
	assert.Equal(t, defaultLockTTL, lock.ttl)

	_, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.ErrorContains(t, lock.Release(context.Background()), "conn refused")
}

func TestRedisLockRequiresKey(t *testing.T) {
	_, err := NewRedisLock(&memoryStore{}, "", time.Minute)
	assert.Error(t, err)
	_, err = NewRedisLock(nil, "lock", time.Minute)
	assert.Error(t, err)
}
