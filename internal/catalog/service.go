package catalog

import (
	"context"
	"fmt"

	"github.com/supplyhub/marketplace-backend/pkg/db"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

// Service exposes the public catalog browsing reads.
type Service interface {
	ListShops(ctx context.Context) ([]ShopDTO, error)
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	ListProducts(ctx context.Context) ([]ProductDTO, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]ListingDTO, error)
}

type service struct {
	repo  Repository
	cache *ListingCache
}

// NewService builds the catalog read service; cache may be nil.
func NewService(repo Repository, cache *ListingCache) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo, cache: cache}, nil
}

func (s *service) ListShops(ctx context.Context) ([]ShopDTO, error) {
	shops, err := s.repo.ListShops(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shops")
	}
	out := make([]ShopDTO, 0, len(shops))
	for _, shop := range shops {
		out = append(out, FromShop(shop))
	}
	return out, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(categories))
	for _, category := range categories {
		out = append(out, FromCategory(category))
	}
	return out, nil
}

func (s *service) ListProducts(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(products))
	for _, product := range products {
		out = append(out, FromProduct(product))
	}
	return out, nil
}

// ListListings returns the offers of shops that accept orders, optionally
// narrowed to one shop and/or one category.
func (s *service) ListListings(ctx context.Context, filter ListingFilter) ([]ListingDTO, error) {
	if cached, ok := s.cache.Load(ctx, filter); ok {
		return cached, nil
	}
	if filter.ShopID != nil {
		if _, err := s.repo.FindShopByID(ctx, *filter.ShopID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shop not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup shop")
		}
	}
	if filter.CategoryID != nil {
		if _, err := s.repo.FindCategory(ctx, *filter.CategoryID); err != nil {
			if db.IsNotFound(err) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup category")
		}
	}

	listings, err := s.repo.ListListings(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list listings")
	}
	out := make([]ListingDTO, 0, len(listings))
	for _, listing := range listings {
		out = append(out, FromListing(listing))
	}
	s.cache.Store(ctx, filter, out)
	return out, nil
}
