package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists inbox rows. Every user-facing query is scoped to the
// owning user so one user can never read or flip another's notifications.
type Repository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error)
	// MarkRead reports whether the notification exists for userID. Marking an
	// already read notification is a no-op that still reports true.
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) inbox(ctx context.Context, userID uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
}

func (r *gormRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&notifications, 100).Error
}

func (r *gormRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]models.Notification, error) {
	q := r.inbox(ctx, userID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []models.Notification
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *gormRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID, now time.Time) (bool, error) {
	var row models.Notification
	err := r.inbox(ctx, userID).Select("id", "read_at").Where("id = ?", notificationID).Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, err
	case row.ReadAt != nil:
		return true, nil
	}
	err = r.inbox(ctx, userID).
		Where("id = ? AND read_at IS NULL", notificationID).
		UpdateColumn("read_at", now).Error
	return err == nil, err
}

func (r *gormRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := r.inbox(ctx, userID).Where("read_at IS NULL").UpdateColumn("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteReadBefore removes up to limit read rows created before cutoff,
// oldest first. Unread rows are kept regardless of age.
func (r *gormRepository) DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	db = db.WithContext(ctx)
	victims := db.Model(&models.Notification{}).
		Select("id").
		Where("read_at IS NOT NULL AND created_at < ?", cutoff).
		Order("created_at").
		Limit(limit)
	res := db.Where("id IN (?)", victims).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
