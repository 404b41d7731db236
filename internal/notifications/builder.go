package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
)

// errInvalidPayload marks events that can never produce notifications.
var errInvalidPayload = errors.New("invalid notification payload")

// managerLookup resolves the accounts bound to shops.
type managerLookup interface {
	ListShopManagers(ctx context.Context, shopIDs []int64) ([]uuid.UUID, error)
}

// build turns a decoded event payload into the rows to deliver.
func build(ctx context.Context, managers managerLookup, payload any) ([]models.Notification, error) {
	switch event := payload.(type) {
	case *payloads.OrderPlacedEvent:
		return buildOrderPlaced(ctx, managers, event)
	case *payloads.UserRegisteredEvent:
		if event.UserID == uuid.Nil {
			return nil, fmt.Errorf("%w: user id missing", errInvalidPayload)
		}
		return []models.Notification{{
			UserID:  event.UserID,
			Type:    enums.NotificationTypeWelcome,
			Title:   "Welcome to the marketplace",
			Message: fmt.Sprintf("Hi %s, your %s account is ready.", displayName(event.FirstName), event.Type),
		}}, nil
	case *payloads.CatalogImportedEvent:
		if event.ManagerID == uuid.Nil {
			return nil, nil
		}
		return []models.Notification{{
			UserID:  event.ManagerID,
			Type:    enums.NotificationTypeCatalogUpdated,
			Title:   "Price list imported",
			Message: fmt.Sprintf("%s: %d items imported, %d skipped.", event.ShopName, event.ItemsImported, event.ItemsSkipped),
			Link:    stringPtr(fmt.Sprintf("/listings?shop_id=%d", event.ShopID)),
		}}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", errInvalidPayload, payload)
	}
}

func buildOrderPlaced(ctx context.Context, managers managerLookup, event *payloads.OrderPlacedEvent) ([]models.Notification, error) {
	if event.UserID == uuid.Nil || event.OrderID <= 0 {
		return nil, fmt.Errorf("%w: order placed payload incomplete", errInvalidPayload)
	}
	link := stringPtr(fmt.Sprintf("/orders/%d", event.OrderID))
	out := []models.Notification{{
		UserID:  event.UserID,
		Type:    enums.NotificationTypeOrderConfirmation,
		Title:   "Order received",
		Message: fmt.Sprintf("Order #%d with %d items is confirmed, total %d.", event.OrderID, event.ItemCount, event.TotalSum),
		Link:    link,
	}}

	ids, err := managers.ListShopManagers(ctx, event.ShopIDs)
	if err != nil {
		return nil, fmt.Errorf("list shop managers: %w", err)
	}
	for _, managerID := range ids {
		out = append(out, models.Notification{
			UserID:  managerID,
			Type:    enums.NotificationTypeNewOrder,
			Title:   "New order",
			Message: fmt.Sprintf("Order #%d contains your listings.", event.OrderID),
			Link:    link,
		})
	}
	return out, nil
}

func displayName(firstName string) string {
	if firstName == "" {
		return "there"
	}
	return firstName
}

func stringPtr(value string) *string {
	return &value
}
