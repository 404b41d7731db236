package orders

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service drives the basket → order lifecycle for one principal per call.
type Service interface {
	// GetBasket returns nil and no error while the user has no basket.
	GetBasket(ctx context.Context, userID uuid.UUID) (*OrderView, error)
	AddItems(ctx context.Context, userID uuid.UUID, items []AddItemInput) (int, error)
	UpdateQuantities(ctx context.Context, userID uuid.UUID, updates []QuantityUpdate) (int, error)
	RemoveItems(ctx context.Context, userID uuid.UUID, itemIDs []int64) (int, error)
	PlaceOrder(ctx context.Context, userID uuid.UUID, orderID, contactID int64) (bool, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderView, error)
	ListShopOrders(ctx context.Context, userID uuid.UUID, shopID int64) ([]OrderView, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
	}, nil
}

func (s *service) GetBasket(ctx context.Context, userID uuid.UUID) (*OrderView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	basket, err := s.repo.FindBasketDetail(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
	}
	view := FromOrder(*basket)
	return &view, nil
}

// AddItems inserts every item into the caller's basket or none of them.
func (s *service) AddItems(ctx context.Context, userID uuid.UUID, items []AddItemInput) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(items) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "items required")
	}
	if details := validateItemFields(items); len(details) > 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid basket items").WithDetails(details)
	}

	created := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		basket, err := getOrCreateBasket(ctx, repo, userID)
		if err != nil {
			return err
		}

		details := map[string]string{}
		listings := make([]*models.ProductInfo, len(items))
		for idx, item := range items {
			listing, reason, err := checkListing(ctx, repo, item)
			if err != nil {
				return err
			}
			if reason != "" {
				details[itemField(idx, "product_info")] = reason
			}
			listings[idx] = listing
		}
		if len(details) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid basket items").WithDetails(details)
		}

		for idx, item := range items {
			listing := listings[idx]
			row := &models.OrderItem{
				OrderID:       basket.ID,
				ProductInfoID: &listing.ID,
				ShopID:        item.ShopID,
				Quantity:      item.Quantity,
				Name:          listing.Name,
				Model:         listing.Model,
				Price:         listing.Price,
			}
			if err := repo.CreateItem(ctx, row); err != nil {
				if db.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "item already in basket").
						WithDetails(map[string]any{"product_info": item.ProductInfoID, "store_message": err.Error()})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create basket item")
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// UpdateQuantities applies the updates scoped to the caller's basket and
// returns how many rows changed. Entries that match nothing are ignored.
func (s *service) UpdateQuantities(ctx context.Context, userID uuid.UUID, updates []QuantityUpdate) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	valid := make([]QuantityUpdate, 0, len(updates))
	for _, update := range updates {
		if update.ID > 0 && update.Quantity > 0 {
			valid = append(valid, update)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	var updated int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		basket, err := repo.FindBasket(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
		}
		for _, update := range valid {
			n, err := repo.UpdateItemQuantity(ctx, basket.ID, update.ID, update.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update basket item")
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(updated), nil
}

// RemoveItems deletes basket items by id. The basket itself is kept even when
// it ends up empty.
func (s *service) RemoveItems(ctx context.Context, userID uuid.UUID, itemIDs []int64) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	ids := uniquePositive(itemIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		basket, err := repo.FindBasket(ctx, userID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
		}
		deleted, err = repo.DeleteItems(ctx, basket.ID, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete basket items")
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

// PlaceOrder turns the caller's basket into a `new` order bound to the contact.
// It returns false, without error, when orderID is not the caller's basket.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, orderID, contactID int64) (bool, error) {
	if userID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	details := map[string]string{}
	if orderID <= 0 {
		details["id"] = "must be a positive integer"
	}
	if contactID <= 0 {
		details["contact"] = "must be a positive integer"
	}
	if len(details) > 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "invalid order placement").WithDetails(details)
	}

	placed := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindOwnedContact(ctx, userID, contactID); err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
		}

		basket, err := repo.FindUserBasketByID(ctx, userID, orderID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
		}
		if len(basket.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "basket is empty")
		}

		affected, err := repo.PlaceBasket(ctx, userID, orderID, contactID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
		}
		if affected == 0 {
			return nil
		}
		placed = true

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   strconv.FormatInt(orderID, 10),
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderPlacedEvent{
				OrderID:   orderID,
				UserID:    userID,
				ContactID: contactID,
				Status:    enums.OrderStatusNew,
				ShopIDs:   shopIDs(basket.Items),
				TotalSum:  TotalSum(*basket),
				ItemCount: len(basket.Items),
			},
		})
	})
	if err != nil {
		return false, err
	}
	if placed {
		logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": orderID, "user_id": userID.String()})
		s.logg.Info(logCtx, "order placed")
	}
	return placed, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]OrderView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListUserOrders(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return fromOrders(rows), nil
}

// ListShopOrders lists placed orders that contain the shop's listings. Only
// the shop's manager may read them.
func (s *service) ListShopOrders(ctx context.Context, userID uuid.UUID, shopID int64) ([]OrderView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	shop, err := s.repo.FindShop(ctx, shopID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if !shop.ManagedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop is managed by another account")
	}
	rows, err := s.repo.ListShopOrders(ctx, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders")
	}
	return fromOrders(rows), nil
}

func getOrCreateBasket(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Order, error) {
	basket, err := repo.FindBasket(ctx, userID)
	if err == nil {
		return basket, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
	}
	// A concurrent request may win the insert; either way the basket exists afterwards.
	if _, err := repo.CreateBasket(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create basket")
	}
	basket, err = repo.FindBasket(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load basket")
	}
	return basket, nil
}

func validateItemFields(items []AddItemInput) map[string]string {
	details := map[string]string{}
	for idx, item := range items {
		if item.ProductInfoID <= 0 {
			details[itemField(idx, "product_info")] = "required"
		}
		if item.ShopID <= 0 {
			details[itemField(idx, "shop")] = "required"
		}
		if item.Quantity <= 0 {
			details[itemField(idx, "quantity")] = "must be at least 1"
		}
	}
	return details
}

// checkListing loads the listing an item refers to. A non-empty reason marks
// the item invalid.
func checkListing(ctx context.Context, repo Repository, item AddItemInput) (*models.ProductInfo, string, error) {
	listing, err := repo.FindListing(ctx, item.ProductInfoID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "listing not found", nil
		}
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listing")
	}
	if listing.ShopID != item.ShopID {
		return listing, "listing does not belong to shop", nil
	}
	if listing.Shop != nil && !listing.Shop.AcceptingOrders {
		return listing, "shop is not accepting orders", nil
	}
	return listing, "", nil
}

func itemField(idx int, field string) string {
	return fmt.Sprintf("items[%d].%s", idx, field)
}

func uniquePositive(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func shopIDs(items []models.OrderItem) []int64 {
	seen := map[int64]struct{}{}
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ShopID]; ok {
			continue
		}
		seen[item.ShopID] = struct{}{}
		out = append(out, item.ShopID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
