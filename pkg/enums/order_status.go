package enums

import "slices"

// OrderStatus maps to the order_status column. `basket` is the per-user
// draft; the remaining values are the post-checkout lifecycle.
type OrderStatus string

const (
	OrderStatusBasket    OrderStatus = "basket"
	OrderStatusNew       OrderStatus = "new"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusAssembled OrderStatus = "assembled"
	OrderStatusSent      OrderStatus = "sent"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{
	OrderStatusBasket,
	OrderStatusNew,
	OrderStatusConfirmed,
	OrderStatusAssembled,
	OrderStatusSent,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	return slices.Contains(orderStatuses, s)
}

// IsPlaced reports whether the order left the basket.
func (s OrderStatus) IsPlaced() bool {
	return s.IsValid() && s != OrderStatusBasket
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parse("order status", orderStatuses, value)
}
