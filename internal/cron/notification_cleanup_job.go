package cron

import (
	"context"
	"errors"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultNotificationRetention = 30 * 24 * time.Hour
	defaultCleanupBatch          = 1000
)

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository readNotificationPruner
	Retention  time.Duration
	// BatchSize bounds the rows removed per transaction.
	BatchSize int
}

type readNotificationPruner interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

// NewNotificationCleanupJob removes read notifications older than the
// retention window. Unread rows are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("notification cleanup: logger required")
	case params.DB == nil:
		return nil, errors.New("notification cleanup: db runner required")
	case params.Repository == nil:
		return nil, errors.New("notification cleanup: repository required")
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Repository,
		retention: orDefault(params.Retention, defaultNotificationRetention),
		batch:     max(params.BatchSize, 0),
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      readNotificationPruner
	retention time.Duration
	batch     int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

// Run deletes in batches, each in its own transaction, until a batch comes
// back short. Rows removed by earlier batches stay removed if a later one fails.
func (j *notificationCleanupJob) Run(ctx context.Context) error {
	batch := j.batch
	if batch == 0 {
		batch = defaultCleanupBatch
	}
	cutoff := j.now().UTC().Add(-j.retention)

	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			deleted, err = j.repo.DeleteReadBefore(ctx, tx, cutoff, batch)
			return err
		})
		if err != nil {
			return err
		}
		total += deleted
		batches++
		if deleted < int64(batch) {
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"batches":      batches,
	}), "read notifications pruned")
	return nil
}
