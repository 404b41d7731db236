package catalog

import (
	"context"

	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines persistence operations for the catalog tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindShopByName(ctx context.Context, name string) (*models.Shop, error)
	FindShopByID(ctx context.Context, id int64) (*models.Shop, error)
	CreateShop(ctx context.Context, shop *models.Shop) error
	UpdateShop(ctx context.Context, shopID int64, updates map[string]any) error
	FindCategory(ctx context.Context, id int64) (*models.Category, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	LinkShopCategory(ctx context.Context, shopID, categoryID int64) error
	ReleaseShopListings(ctx context.Context, shopID int64) (int64, error)
	DeleteShopListings(ctx context.Context, shopID int64) (int64, error)
	GetOrCreateProduct(ctx context.Context, name string, categoryID int64) (*models.Product, error)
	CreateListing(ctx context.Context, listing *models.ProductInfo) error
	GetOrCreateParameter(ctx context.Context, name string) (*models.Parameter, error)
	CreateListingParameters(ctx context.Context, params []models.ProductParameter) error
	ListShops(ctx context.Context) ([]models.Shop, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]models.ProductInfo, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindShopByName(ctx context.Context, name string) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) FindShopByID(ctx context.Context, id int64) (*models.Shop, error) {
	var shop models.Shop
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shop).Error; err != nil {
		return nil, err
	}
	return &shop, nil
}

func (r *repository) CreateShop(ctx context.Context, shop *models.Shop) error {
	return r.db.WithContext(ctx).Create(shop).Error
}

func (r *repository) UpdateShop(ctx context.Context, shopID int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Shop{}).
		Where("id = ?", shopID).
		Updates(updates).Error
}

func (r *repository) FindCategory(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *repository) LinkShopCategory(ctx context.Context, shopID, categoryID int64) error {
	link := models.ShopCategory{ShopID: shopID, CategoryID: categoryID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&link).Error
}

func (r *repository) shopListingIDs(shopID int64) *gorm.DB {
	return r.db.Model(&models.ProductInfo{}).Select("id").Where("shop_id = ?", shopID)
}

// ReleaseShopListings unhooks order lines from the shop's listings before
// they are deleted. Basket lines are dropped and their count returned.
// Lines of placed orders are detached and keep their name and price copy.
func (r *repository) ReleaseShopListings(ctx context.Context, shopID int64) (int64, error) {
	baskets := r.db.Model(&models.Order{}).Select("id").Where("status = ?", enums.OrderStatusBasket)
	dropped := r.db.WithContext(ctx).
		Where("product_info_id IN (?)", r.shopListingIDs(shopID)).
		Where("order_id IN (?)", baskets).
		Delete(&models.OrderItem{})
	if dropped.Error != nil {
		return 0, dropped.Error
	}
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("product_info_id IN (?)", r.shopListingIDs(shopID)).
		Update("product_info_id", nil).Error
	return dropped.RowsAffected, err
}

// DeleteShopListings removes every listing of the shop together with its parameter values.
func (r *repository) DeleteShopListings(ctx context.Context, shopID int64) (int64, error) {
	listingIDs := r.shopListingIDs(shopID)
	if err := r.db.WithContext(ctx).
		Where("product_info_id IN (?)", listingIDs).
		Delete(&models.ProductParameter{}).Error; err != nil {
		return 0, err
	}
	res := r.db.WithContext(ctx).Where("shop_id = ?", shopID).Delete(&models.ProductInfo{})
	return res.RowsAffected, res.Error
}

func (r *repository) GetOrCreateProduct(ctx context.Context, name string, categoryID int64) (*models.Product, error) {
	product := models.Product{}
	err := r.db.WithContext(ctx).
		Where(map[string]any{"name": name, "category_id": categoryID}).
		FirstOrCreate(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) CreateListing(ctx context.Context, listing *models.ProductInfo) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(listing).Error
}

func (r *repository) GetOrCreateParameter(ctx context.Context, name string) (*models.Parameter, error) {
	param := models.Parameter{}
	err := r.db.WithContext(ctx).
		Where(map[string]any{"name": name}).
		FirstOrCreate(&param).Error
	if err != nil {
		return nil, err
	}
	return &param, nil
}

func (r *repository) CreateListingParameters(ctx context.Context, params []models.ProductParameter) error {
	if len(params) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&params).Error
}

func (r *repository) ListShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.db.WithContext(ctx).Order("name ASC").Find(&shops).Error
	return shops, err
}

func (r *repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Order("name ASC").
		Find(&products).Error
	return products, err
}

func (r *repository) ListListings(ctx context.Context, filter ListingFilter) ([]models.ProductInfo, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ProductInfo{}).
		Joins("JOIN shops ON shops.id = product_infos.shop_id").
		Where("shops.accepting_orders = ?", true)
	if filter.ShopID != nil {
		query = query.Where("product_infos.shop_id = ?", *filter.ShopID)
	}
	if filter.CategoryID != nil {
		query = query.
			Joins("JOIN products ON products.id = product_infos.product_id").
			Where("products.category_id = ?", *filter.CategoryID)
	}

	var listings []models.ProductInfo
	err := query.
		Preload("Shop").
		Preload("Product.Category").
		Preload("Parameters.Parameter").
		Order("product_infos.id ASC").
		Find(&listings).Error
	return listings, err
}
