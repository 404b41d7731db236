package enums

import "slices"

// NotificationType tags inbox rows so clients can pick an icon and a link.
type NotificationType string

const (
	// NotificationTypeOrderConfirmation goes to the buyer once an order is placed.
	NotificationTypeOrderConfirmation NotificationType = "order_confirmation"
	// NotificationTypeNewOrder goes to every manager of a shop in the order.
	NotificationTypeNewOrder       NotificationType = "new_order"
	NotificationTypeWelcome        NotificationType = "welcome"
	NotificationTypeCatalogUpdated NotificationType = "catalog_updated"
)

var notificationTypes = []NotificationType{
	NotificationTypeOrderConfirmation,
	NotificationTypeNewOrder,
	NotificationTypeWelcome,
	NotificationTypeCatalogUpdated,
}

func (n NotificationType) IsValid() bool {
	return slices.Contains(notificationTypes, n)
}

func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", notificationTypes, value)
}
