package controllers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	"github.com/supplyhub/marketplace-backend/internal/catalog"
	"github.com/supplyhub/marketplace-backend/internal/orders"
	"github.com/supplyhub/marketplace-backend/internal/shops"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

// importFileField is the multipart field carrying the supplier price list.
const importFileField = "update_file"

// PartnerImport replaces the caller's shop catalog with an uploaded price list.
// The document arrives either as the multipart field update_file or as the raw
// request body.
func PartnerImport(imp catalog.Importer, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	if imp == nil {
		return failing(logg, unavailable("catalog importer"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		source, err := importSource(r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err))
			return
		}
		defer source.Close()

		raw, err := io.ReadAll(source)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err))
			return
		}

		doc, err := catalog.ParseDocument(bytes.NewReader(raw))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, uploadError(err))
			return
		}

		result, err := imp.Import(r.Context(), catalog.ImportInput{
			ManagerID:   middleware.PrincipalFromContext(r.Context()),
			ManagerType: middleware.UserTypeFromContext(r.Context()),
			Document:    doc,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func importSource(r *http.Request, maxBytes int64) (io.ReadCloser, error) {
	if !strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		return r.Body, nil
	}
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, err
	}
	file, _, err := r.FormFile(importFileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, pkgerrors.New(pkgerrors.CodeSchema, "insufficient arguments").
				WithDetails(map[string]string{importFileField: "is required"})
		}
		return nil, err
	}
	return file, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "price list exceeds upload limit").
			WithDetails(map[string]int64{"max_bytes": tooLarge.Limit})
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeSchema, err, "insufficient arguments")
}

func PartnerShops(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("shops"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListManaged(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PartnerShopStatus opens or closes a managed shop for new orders.
func PartnerShopStatus(svc shops.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("shops"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.PathID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body shops.StatusInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shop, err := svc.SetStatus(r.Context(), middleware.PrincipalFromContext(r.Context()), shopID, *body.State)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shop)
	}
}

// PartnerShopOrders lists placed orders that contain the shop's listings.
func PartnerShopOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		shopID, err := validators.PathID(r, "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListShopOrders(r.Context(), middleware.PrincipalFromContext(r.Context()), shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
