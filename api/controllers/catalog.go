package controllers

import (
	"net/http"

	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	"github.com/supplyhub/marketplace-backend/internal/catalog"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

func CatalogShops(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("catalog"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shops, err := svc.ListShops(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shops)
	}
}

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("catalog"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("catalog"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// CatalogListings lists offers, optionally narrowed by ?shop_id= and ?category_id=.
func CatalogListings(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("catalog"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.ParseQueryID(r, "shop_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		categoryID, err := validators.ParseQueryID(r, "category_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		listings, err := svc.ListListings(r.Context(), catalog.ListingFilter{ShopID: shopID, CategoryID: categoryID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listings)
	}
}
