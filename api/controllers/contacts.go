package controllers

import (
	"net/http"

	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	"github.com/supplyhub/marketplace-backend/internal/contacts"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

func ContactList(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("contacts"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func ContactCreate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("contacts"))
	}
	return jsonEndpoint(logg, http.StatusCreated, func(r *http.Request, body contacts.ContactInput) (any, error) {
		return svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), body)
	})
}

func ContactUpdate(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("contacts"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		contactID, err := validators.PathID(r, "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body contacts.ContactPatch
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		contact, err := svc.Update(r.Context(), middleware.PrincipalFromContext(r.Context()), contactID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, contact)
	}
}

func ContactDelete(svc contacts.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("contacts"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		contactID, err := validators.PathID(r, "contactId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.PrincipalFromContext(r.Context()), contactID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
