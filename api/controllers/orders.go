package controllers

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	"github.com/supplyhub/marketplace-backend/internal/orders"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

type basketAddBody struct {
	Items []orders.AddItemInput `json:"items"`
}

// basketUpdateBody keeps entries raw so one malformed entry is dropped on
// its own instead of rejecting the whole request.
type basketUpdateBody struct {
	Items []json.RawMessage `json:"items"`
}

// quantityUpdates keeps the entries whose id and quantity are both JSON
// integers. Quantities must also fit the integer column.
func (b basketUpdateBody) quantityUpdates() []orders.QuantityUpdate {
	updates := make([]orders.QuantityUpdate, 0, len(b.Items))
	for _, raw := range b.Items {
		var entry struct {
			ID       json.RawMessage `json:"id"`
			Quantity json.RawMessage `json:"quantity"`
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		id, okID := validators.JSONInt(entry.ID)
		quantity, okQty := validators.JSONInt(entry.Quantity)
		if !okID || !okQty || quantity > math.MaxInt32 {
			continue
		}
		updates = append(updates, orders.QuantityUpdate{ID: id, Quantity: int(quantity)})
	}
	return updates
}

type placeOrderBody struct {
	OrderID   int64 `json:"order_id" validate:"required,gt=0"`
	ContactID int64 `json:"contact_id" validate:"required,gt=0"`
}

func insufficientArguments(field string) error {
	return pkgerrors.New(pkgerrors.CodeSchema, "insufficient arguments").
		WithDetails(map[string]string{field: "is required"})
}

func BasketFetch(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		basket, err := svc.GetBasket(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, basket)
	}
}

func BasketAdd(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body basketAddBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(body.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, insufficientArguments("items"))
			return
		}
		created, err := svc.AddItems(r.Context(), middleware.PrincipalFromContext(r.Context()), body.Items)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]int{"created": created})
	}
}

func BasketUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body basketUpdateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(body.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, insufficientArguments("items"))
			return
		}
		updated, err := svc.UpdateQuantities(r.Context(), middleware.PrincipalFromContext(r.Context()), body.quantityUpdates())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"updated": updated})
	}
}

// BasketRemove deletes the basket items named by ?items=1,2,3.
func BasketRemove(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.URL.Query().Get("items"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, insufficientArguments("items"))
			return
		}
		deleted, err := svc.RemoveItems(r.Context(), middleware.PrincipalFromContext(r.Context()), validators.ParseIDList(raw))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"deleted": deleted})
	}
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListOrders(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderPlace turns the caller's basket into a new order for the given contact.
func OrderPlace(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("orders"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body placeOrderBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		placed, err := svc.PlaceOrder(r.Context(), middleware.PrincipalFromContext(r.Context()), body.OrderID, body.ContactID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !placed {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"placed": true, "order_id": body.OrderID})
	}
}
