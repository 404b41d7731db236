package shops

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

type shopRepository interface {
	ListByManager(ctx context.Context, userID uuid.UUID) ([]models.Shop, error)
	FindByID(ctx context.Context, id int64) (*models.Shop, error)
	SetAcceptingOrders(ctx context.Context, userID uuid.UUID, shopID int64, accepting bool) (int64, error)
}

// listingInvalidator drops cached catalog listings after a visibility change.
type listingInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service exposes the shop-manager operations.
type Service interface {
	ListManaged(ctx context.Context, userID uuid.UUID) ([]ShopDTO, error)
	SetStatus(ctx context.Context, userID uuid.UUID, shopID int64, accepting bool) (*ShopDTO, error)
}

type service struct {
	repo  shopRepository
	cache listingInvalidator
	logg  *logger.Logger
}

// NewService builds a shop service. cache may be nil.
func NewService(repo shopRepository, cache listingInvalidator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shop repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, cache: cache, logg: logg}, nil
}

func (s *service) ListManaged(ctx context.Context, userID uuid.UUID) ([]ShopDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByManager(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shops")
	}
	out := make([]ShopDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) SetStatus(ctx context.Context, userID uuid.UUID, shopID int64, accepting bool) (*ShopDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	shop, err := s.repo.FindByID(ctx, shopID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
	}
	if !shop.ManagedBy(userID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop is managed by another account")
	}

	if shop.AcceptingOrders != accepting {
		affected, err := s.repo.SetAcceptingOrders(ctx, userID, shopID, accepting)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shop status")
		}
		if affected == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
		}
		if s.cache != nil {
			s.cache.Invalidate(ctx)
		}
		logCtx := s.logg.WithFields(ctx, map[string]any{"shop_id": shopID, "accepting_orders": accepting})
		s.logg.Info(logCtx, "shop status changed")
	}

	shop.AcceptingOrders = accepting
	dto := FromModel(*shop)
	return &dto, nil
}
