package shops

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository handles shop persistence for managers.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to shop operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListByManager returns the shops bound to the user, ordered by name.
func (r *Repository) ListByManager(ctx context.Context, userID uuid.UUID) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name ASC").
		Find(&shops).Error
	return shops, err
}

// FindByID loads a shop by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// SetAcceptingOrders updates the flag on a shop bound to the user.
func (r *Repository) SetAcceptingOrders(ctx context.Context, userID uuid.UUID, shopID int64, accepting bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ? AND user_id = ?", shopID, userID).
		Update("accepting_orders", accepting)
	return res.RowsAffected, res.Error
}
