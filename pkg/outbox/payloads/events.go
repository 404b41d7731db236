package payloads

import (
	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when a basket becomes a `new` order.
type OrderPlacedEvent struct {
	OrderID   int64             `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	ContactID int64             `json:"contact_id"`
	Status    enums.OrderStatus `json:"status"`
	ShopIDs   []int64           `json:"shop_ids"`
	TotalSum  int64             `json:"total_sum"`
	ItemCount int               `json:"item_count"`
}

// UserRegisteredEvent triggers the welcome notification.
type UserRegisteredEvent struct {
	UserID    uuid.UUID      `json:"user_id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	Type      enums.UserType `json:"type"`
}

// CatalogImportedEvent summarises a completed supplier price-list import.
type CatalogImportedEvent struct {
	ShopID        int64     `json:"shop_id"`
	ShopName      string    `json:"shop_name"`
	ManagerID     uuid.UUID `json:"manager_id"`
	ItemsImported int       `json:"items_imported"`
	ItemsSkipped  int       `json:"items_skipped"`
}
