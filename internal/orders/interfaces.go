package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBasket(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	FindBasketDetail(ctx context.Context, userID uuid.UUID) (*models.Order, error)
	CreateBasket(ctx context.Context, userID uuid.UUID) (bool, error)
	FindListing(ctx context.Context, listingID int64) (*models.ProductInfo, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	UpdateItemQuantity(ctx context.Context, orderID, itemID int64, quantity int) (int64, error)
	DeleteItems(ctx context.Context, orderID int64, itemIDs []int64) (int64, error)
	FindOwnedContact(ctx context.Context, userID uuid.UUID, contactID int64) (*models.Contact, error)
	FindUserBasketByID(ctx context.Context, userID uuid.UUID, orderID int64) (*models.Order, error)
	PlaceBasket(ctx context.Context, userID uuid.UUID, orderID, contactID int64) (int64, error)
	ListUserOrders(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	FindShop(ctx context.Context, shopID int64) (*models.Shop, error)
	ListShopOrders(ctx context.Context, shopID int64) ([]models.Order, error)
}
