package catalog

import (
	"sort"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// ImportInput carries the requesting manager and the parsed price list.
type ImportInput struct {
	ManagerID   uuid.UUID
	ManagerType enums.UserType
	Document    *Document
}

// ImportResult summarises a finished import.
type ImportResult struct {
	ShopID             int64  `json:"shop_id"`
	ShopName           string `json:"shop_name"`
	CategoriesLinked   int    `json:"categories_linked"`
	CategoriesSkipped  int    `json:"categories_skipped"`
	ItemsImported      int    `json:"items_imported"`
	ItemsSkipped       int    `json:"items_skipped"`
	ListingsReplaced   int64  `json:"listings_replaced"`
	// BasketItemsDropped counts basket lines that pointed at replaced listings.
	BasketItemsDropped int64  `json:"basket_items_dropped"`
}

// ListingFilter narrows ListListings; nil fields are ignored.
type ListingFilter struct {
	ShopID     *int64
	CategoryID *int64
}

// ShopDTO is the public shape of a shop.
type ShopDTO struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	URL             *string `json:"url,omitempty"`
	AcceptingOrders bool    `json:"accepting_orders"`
}

// CategoryDTO is the public shape of a category.
type CategoryDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductDTO is a product with its category name.
type ProductDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ParameterDTO is one parameter value of a listing.
type ParameterDTO struct {
	Parameter string `json:"parameter"`
	Value     string `json:"value"`
}

// ListingDTO is a shop's offer of a product.
type ListingDTO struct {
	ID         int64          `json:"id"`
	ExternalID int64          `json:"external_id"`
	Model      string         `json:"model"`
	Name       string         `json:"name"`
	Product    ProductDTO     `json:"product"`
	Shop       ShopDTO        `json:"shop"`
	Quantity   int            `json:"quantity"`
	Price      int64          `json:"price"`
	PriceRRC   int64          `json:"price_rrc"`
	Parameters []ParameterDTO `json:"product_parameters"`
}

// FromShop maps a shop row to its DTO.
func FromShop(shop models.Shop) ShopDTO {
	return ShopDTO{
		ID:              shop.ID,
		Name:            shop.Name,
		URL:             shop.URL,
		AcceptingOrders: shop.AcceptingOrders,
	}
}

// FromCategory maps a category row to its DTO.
func FromCategory(category models.Category) CategoryDTO {
	return CategoryDTO{ID: category.ID, Name: category.Name}
}

// FromProduct maps a product row, with its category preloaded, to its DTO.
func FromProduct(product models.Product) ProductDTO {
	dto := ProductDTO{ID: product.ID, Name: product.Name}
	if product.Category != nil {
		dto.Category = product.Category.Name
	}
	return dto
}

// FromListing maps a listing with preloaded relations to its DTO.
func FromListing(listing models.ProductInfo) ListingDTO {
	dto := ListingDTO{
		ID:         listing.ID,
		ExternalID: listing.ExternalID,
		Model:      listing.Model,
		Name:       listing.Name,
		Quantity:   listing.Quantity,
		Price:      listing.Price,
		PriceRRC:   listing.PriceRRC,
		Parameters: make([]ParameterDTO, 0, len(listing.Parameters)),
	}
	if listing.Product != nil {
		dto.Product = FromProduct(*listing.Product)
	}
	if listing.Shop != nil {
		dto.Shop = FromShop(*listing.Shop)
	} else {
		dto.Shop = ShopDTO{ID: listing.ShopID}
	}
	for _, param := range listing.Parameters {
		entry := ParameterDTO{Value: param.Value}
		if param.Parameter != nil {
			entry.Parameter = param.Parameter.Name
		}
		dto.Parameters = append(dto.Parameters, entry)
	}
	sort.Slice(dto.Parameters, func(i, j int) bool {
		return dto.Parameters[i].Parameter < dto.Parameters[j].Parameter
	})
	return dto
}
