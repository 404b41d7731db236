package orders

import (
	"time"

	"github.com/supplyhub/marketplace-backend/internal/catalog"
	"github.com/supplyhub/marketplace-backend/internal/contacts"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// AddItemInput is one listing to put into the basket.
type AddItemInput struct {
	ProductInfoID int64 `json:"product_info" validate:"required,gt=0"`
	ShopID        int64 `json:"shop" validate:"required,gt=0"`
	Quantity      int   `json:"quantity" validate:"required,gt=0"`
}

// QuantityUpdate sets the quantity of one basket item.
type QuantityUpdate struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// OrderItemView is a line of an order. ProductInfo is nil once the listing
// was replaced by a catalog import; Name, Model and Price still describe
// what was ordered.
type OrderItemView struct {
	ID          int64               `json:"id"`
	ShopID      int64               `json:"shop"`
	Quantity    int                 `json:"quantity"`
	Name        string              `json:"name"`
	Model       string              `json:"model"`
	Price       int64               `json:"price"`
	ProductInfo *catalog.ListingDTO `json:"product_info"`
}

// OrderView is an order (or the basket) with the derived total.
type OrderView struct {
	ID        int64                `json:"id"`
	Status    enums.OrderStatus    `json:"status"`
	CreatedAt time.Time            `json:"dt"`
	TotalSum  int64                `json:"total_sum"`
	Contact   *contacts.ContactDTO `json:"contact,omitempty"`
	Items     []OrderItemView      `json:"ordered_items"`
}

// TotalSum is Σ quantity × listing price over the preloaded items. Lines
// whose listing is gone are priced from the copy taken when they were added.
func TotalSum(order models.Order) int64 {
	var total int64
	for _, item := range order.Items {
		total += int64(item.Quantity) * unitPrice(item)
	}
	return total
}

func unitPrice(item models.OrderItem) int64 {
	if item.ProductInfo != nil {
		return item.ProductInfo.Price
	}
	return item.Price
}

// FromOrder maps an order with preloaded relations to its view.
func FromOrder(order models.Order) OrderView {
	view := OrderView{
		ID:        order.ID,
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		TotalSum:  TotalSum(order),
		Items:     make([]OrderItemView, 0, len(order.Items)),
	}
	if order.Contact != nil {
		contact := contacts.FromModel(*order.Contact)
		view.Contact = &contact
	}
	for _, item := range order.Items {
		line := OrderItemView{
			ID:       item.ID,
			ShopID:   item.ShopID,
			Quantity: item.Quantity,
			Name:     item.Name,
			Model:    item.Model,
			Price:    unitPrice(item),
		}
		if item.ProductInfo != nil {
			listing := catalog.FromListing(*item.ProductInfo)
			line.ProductInfo = &listing
		}
		view.Items = append(view.Items, line)
	}
	return view
}

func fromOrders(rows []models.Order) []OrderView {
	out := make([]OrderView, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromOrder(row))
	}
	return out
}
