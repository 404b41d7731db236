package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

// fakeNotificationPruner pretends remaining read rows exist and hands them
// out up to limit per call.
type fakeNotificationPruner struct {
	remaining int64
	failOn    int
	cutoffs   []time.Time
	limits    []int
}

func (f *fakeNotificationPruner) DeleteReadBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	f.limits = append(f.limits, limit)
	if f.failOn > 0 && len(f.cutoffs) == f.failOn {
		return 0, errors.New("boom")
	}
	n := min(f.remaining, int64(limit))
	f.remaining -= n
	return n, nil
}

func newNotificationCleanupJob(t *testing.T, repo *fakeNotificationPruner, batch int) *notificationCleanupJob {
	t.Helper()
	job, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.Nop(),
		DB:         passthroughTx{},
		Repository: repo,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	return job.(*notificationCleanupJob)
}

func TestNotificationCleanupJobDrainsInBatches(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationPruner{remaining: 25}
	job := newNotificationCleanupJob(t, repo, 10)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, []int{10, 10, 10}, repo.limits)
	assert.Zero(t, repo.remaining)
	for _, cutoff := range repo.cutoffs {
		assert.True(t, cutoff.Equal(now.Add(-defaultNotificationRetention)))
	}
}

func TestNotificationCleanupJobUsesDefaultBatch(t *testing.T) {
	repo := &fakeNotificationPruner{}
	job := newNotificationCleanupJob(t, repo, 0)

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []int{defaultCleanupBatch}, repo.limits)
}

func TestNotificationCleanupJobStopsOnError(t *testing.T) {
	repo := &fakeNotificationPruner{remaining: 100, failOn: 2}
	job := newNotificationCleanupJob(t, repo, 10)

	assert.EqualError(t, job.Run(context.Background()), "boom")
	assert.Len(t, repo.limits, 2)
	assert.EqualValues(t, 90, repo.remaining)
}

func TestNotificationCleanupJobHonoursCancellation(t *testing.T) {
	repo := &fakeNotificationPruner{remaining: 100}
	job := newNotificationCleanupJob(t, repo, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Empty(t, repo.limits)
}

func TestNotificationCleanupJobRequiresRepository(t *testing.T) {
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logger.Nop(), DB: passthroughTx{}})
	assert.Error(t, err)
}
