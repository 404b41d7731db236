package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	value string
	ttl   time.Duration
}

type fakeStore struct {
	entries map[string]entry
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]entry{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	e, ok := f.entries[key]
	if !ok {
		return "", goredis.Nil
	}
	return e.value, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.entries[key] = entry{value: value.(string), ttl: ttl}
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.entries[key]; ok {
		return false, nil
	}
	f.entries[key] = entry{value: value.(string), ttl: ttl}
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "mkt:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.entries, key)
	}
	return nil
}

const testKey = "mkt:idempotency:evt:notifications:evt-1"

func TestClaimTakesShortLeaseThenCompletes(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, 24*time.Hour, WithLease(time.Minute))
	require.NoError(t, err)
	ctx := context.Background()

	outcome, err := manager.Claim(ctx, "notifications", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, Claimed, outcome)
	assert.Equal(t, entry{value: markerProcessing, ttl: time.Minute}, store.entries[testKey])

	outcome, err = manager.Claim(ctx, "notifications", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, InFlight, outcome)

	require.NoError(t, manager.Complete(ctx, "notifications", "evt-1"))
	assert.Equal(t, entry{value: markerDone, ttl: 24 * time.Hour}, store.entries[testKey])

	outcome, err = manager.Claim(ctx, "notifications", "evt-1")
	require.NoError(t, err)
	assert.Equal(t, Duplicate, outcome)
}

func TestReleaseAllowsReclaim(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.Claim(ctx, "notifications", "evt-2")
	require.NoError(t, err)
	require.NoError(t, manager.Release(ctx, "notifications", "evt-2"))
	assert.Empty(t, store.entries)

	outcome, err := manager.Claim(ctx, "notifications", "evt-2")
	require.NoError(t, err)
	assert.Equal(t, Claimed, outcome)
}

func TestLeaseNeverOutlivesRetention(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Minute, WithLease(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, manager.lease)
}

func TestClaimValidatesInput(t *testing.T) {
	manager, err := NewManager(newFakeStore(), time.Hour)
	require.NoError(t, err)
	_, err = manager.Claim(context.Background(), "", "evt")
	assert.Error(t, err)
	_, err = manager.Claim(context.Background(), "worker", " ")
	assert.Error(t, err)
}

func TestClaimPropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("boom")
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	_, err = manager.Claim(context.Background(), "worker", "evt")
	assert.EqualError(t, err, "boom")
}

func TestNewManagerGuards(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newFakeStore(), -time.Second)
	assert.Error(t, err)
}
