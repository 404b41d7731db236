package shops

import (
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/db/models"
)

// ShopDTO is the manager's view of one of their shops.
type ShopDTO struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	URL             *string   `json:"url,omitempty"`
	AcceptingOrders bool      `json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatusInput toggles whether the shop takes new basket items.
type StatusInput struct {
	State *bool `json:"state" validate:"required"`
}

// FromModel maps a shop row to the manager DTO.
func FromModel(shop models.Shop) ShopDTO {
	return ShopDTO{
		ID:              shop.ID,
		Name:            shop.Name,
		URL:             shop.URL,
		AcceptingOrders: shop.AcceptingOrders,
		CreatedAt:       shop.CreatedAt,
		UpdatedAt:       shop.UpdatedAt,
	}
}
