package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultOutboxRetention     = 14 * 24 * time.Hour
	defaultDeadLetterRetention = 90 * 24 * time.Hour
)

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository publishedEventPruner
	Retention  time.Duration

	// DeadLetters is optional; when set, abandoned rows older than
	// DeadLetterRetention are dropped in the same transaction.
	DeadLetters         deadLetterPruner
	DeadLetterRetention time.Duration
}

type publishedEventPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type deadLetterPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob drops delivered outbox rows, and optionally old dead
// letters, once they age past their retention windows.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	return &outboxRetentionJob{
		logg:                params.Logger,
		db:                  params.DB,
		published:           params.Repository,
		deadLetters:         params.DeadLetters,
		retention:           orDefault(params.Retention, defaultOutboxRetention),
		deadLetterRetention: orDefault(params.DeadLetterRetention, defaultDeadLetterRetention),
		now:                 time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg                *logger.Logger
	db                  txRunner
	published           publishedEventPruner
	deadLetters         deadLetterPruner
	retention           time.Duration
	deadLetterRetention time.Duration
	now                 func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	fields := map[string]any{"cutoff": cutoff}

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		published, err := j.published.DeletePublishedBefore(ctx, tx, cutoff)
		if err != nil {
			return fmt.Errorf("published events: %w", err)
		}
		fields["rows_deleted"] = published

		if j.deadLetters == nil {
			return nil
		}
		dlqCutoff := now.Add(-j.deadLetterRetention)
		dead, err := j.deadLetters.DeleteFailedBefore(ctx, tx, dlqCutoff)
		if err != nil {
			return fmt.Errorf("dead letters: %w", err)
		}
		fields["dead_letter_cutoff"] = dlqCutoff
		fields["dead_letters_deleted"] = dead
		return nil
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox tables pruned")
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
