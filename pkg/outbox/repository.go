package outbox

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxLastErrorLen = 1024

var errTxRequired = errors.New("outbox: transaction required")

// Repository owns the outbox_events table. Every write that belongs to a
// relay pass goes through the caller's transaction so claims and their
// bookkeeping commit together.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Append stores event inside the business transaction that produced it.
func (r *Repository) Append(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(&event).Error
}

// ClaimPending row-locks up to limit unpublished rows, oldest first. Locked
// rows are skipped so concurrent relays split the backlog instead of
// double-sending. Rows at or above maxAttempts stay buried.
func (r *Repository) ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	q := pending(tx)
	if maxAttempts > 0 {
		q = q.Where("attempt_count < ?", maxAttempts)
	}
	var rows []models.OutboxEvent
	err := q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error {
	return r.settle(tx, id, map[string]any{
		"published_at": at.UTC(),
		"last_error":   nil,
	})
}

// RecordFailure bumps the attempt counter and keeps the latest error.
func (r *Repository) RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error {
	return r.settle(tx, id, map[string]any{
		"last_error":    lastError(cause),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// Bury pins attempt_count at ceiling so ClaimPending never returns the row
// again. The row itself stays for inspection next to its dead letter.
func (r *Repository) Bury(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error {
	return r.settle(tx, id, map[string]any{
		"last_error":    lastError(cause),
		"attempt_count": ceiling,
	})
}

func (r *Repository) settle(tx *gorm.DB, id uuid.UUID, updates map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	return pending(tx.Model(&models.OutboxEvent{})).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeletePublishedBefore removes rows delivered before cutoff. Pending and
// buried rows are never touched.
func (r *Repository) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Where("published_at IS NOT NULL AND published_at < ?", cutoff).
		Delete(&models.OutboxEvent{})
	return result.RowsAffected, result.Error
}

func pending(db *gorm.DB) *gorm.DB {
	return db.Where("published_at IS NULL")
}

func lastError(err error) *string {
	if err == nil {
		return nil
	}
	return clip(err.Error())
}

// clip bounds msg to maxLastErrorLen bytes without splitting a rune.
func clip(msg string) *string {
	if len(msg) > maxLastErrorLen {
		cut := maxLastErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return &msg
}
