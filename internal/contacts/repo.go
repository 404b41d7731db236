package contacts

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists delivery contacts.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a contacts repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&contacts).Error
	return contacts, err
}

// FindOwned returns gorm.ErrRecordNotFound when the contact belongs to someone else.
func (r *Repository) FindOwned(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

func (r *Repository) UpdateOwned(ctx context.Context, userID uuid.UUID, contactID int64, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", contactID, userID).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteOwned(ctx context.Context, userID uuid.UUID, contactID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		Delete(&models.Contact{})
	return res.RowsAffected, res.Error
}
