package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// withDetail preloads everything an order view renders.
func withDetail(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_items.id ASC") }).
		Preload("Items.ProductInfo.Shop").
		Preload("Items.ProductInfo.Product.Category").
		Preload("Items.ProductInfo.Parameters.Parameter").
		Preload("Contact")
}

func (r *repository) FindBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindBasketDetail(ctx context.Context, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withDetail(r.db.WithContext(ctx)).
		Where("user_id = ? AND status = ?", userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateBasket inserts a basket unless the user already has one. It reports
// whether a row was inserted; the partial unique index arbitrates races.
func (r *repository) CreateBasket(ctx context.Context, userID uuid.UUID) (bool, error) {
	order := models.Order{UserID: userID, Status: enums.OrderStatusBasket}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "user_id"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "status = 'basket'"}}},
			DoNothing:   true,
		}).
		Omit(clause.Associations).
		Create(&order)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) FindListing(ctx context.Context, listingID int64) (*models.ProductInfo, error) {
	var listing models.ProductInfo
	err := r.db.WithContext(ctx).
		Preload("Shop").
		Where("id = ?", listingID).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

func (r *repository) UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND id = ?", orderID, itemID).
		Update("quantity", quantity)
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteItems(ctx context.Context, orderID int64, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("order_id = ? AND id IN ?", orderID, itemIDs).
		Delete(&models.OrderItem{})
	return res.RowsAffected, res.Error
}

func (r *repository) FindOwnedContact(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", contactID, userID).
		First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *repository) FindUserBasketByID(ctx context.Context, userID uuid.UUID, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items.ProductInfo").
		Where("id = ? AND user_id = ? AND status = ?", orderID, userID, enums.OrderStatusBasket).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// PlaceBasket moves the basket to `new`; zero rows means the id was not the caller's basket.
func (r *repository) PlaceBasket(ctx context.Context, userID uuid.UUID, orderID, contactID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND user_id = ? AND status = ?", orderID, userID, enums.OrderStatusBasket).
		Updates(map[string]any{
			"status":     enums.OrderStatusNew,
			"contact_id": contactID,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := withDetail(r.db.WithContext(ctx)).
		Where("user_id = ? AND status <> ?", userID, enums.OrderStatusBasket).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) FindShop(ctx context.Context, shopID int64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", shopID).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

// ListShopOrders returns each placed order holding at least one of the shop's
// listings exactly once.
func (r *repository) ListShopOrders(ctx context.Context, shopID int64) ([]models.Order, error) {
	withShopItems := r.db.
		Model(&models.OrderItem{}).
		Select("order_id").
		Where("shop_id = ?", shopID)

	var orders []models.Order
	err := withDetail(r.db.WithContext(ctx)).
		Where("id IN (?)", withShopItems).
		Where("status <> ?", enums.OrderStatusBasket).
		Order("created_at DESC").
		Order("id DESC").
		Find(&orders).Error
	return orders, err
}
