package controllers

import (
	"net/http"

	"github.com/supplyhub/marketplace-backend/api/middleware"
	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

func UserMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("users"))
	}
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.Me(r.Context(), middleware.PrincipalFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func UserUpdateMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("users"))
	}
	return jsonEndpoint(logg, http.StatusOK, func(r *http.Request, body users.ProfilePatch) (any, error) {
		return svc.UpdateMe(r.Context(), middleware.PrincipalFromContext(r.Context()), body)
	})
}
