package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultDeadLetterPage = 50

// DeadLetterRepository stores outbox rows the relay abandoned.
type DeadLetterRepository struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

// Record writes entry inside tx. An event is dead-lettered at most once; a
// second record for the same event id is ignored.
func (r *DeadLetterRepository) Record(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return fmt.Errorf("dead letter for %s: transaction required", entry.EventID)
	}
	if !entry.ErrorReason.IsValid() {
		return fmt.Errorf("dead letter for %s: unknown reason %q", entry.EventID, entry.ErrorReason)
	}
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clip(*entry.ErrorMessage)
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&entry).Error
}

// Recent lists the newest dead letters first.
func (r *DeadLetterRepository) Recent(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	if limit <= 0 {
		limit = defaultDeadLetterPage
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Order("failed_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// DeleteFailedBefore drops dead letters older than cutoff.
func (r *DeadLetterRepository) DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	result := db.WithContext(ctx).
		Where("failed_at < ?", cutoff).
		Delete(&models.OutboxDLQ{})
	return result.RowsAffected, result.Error
}
