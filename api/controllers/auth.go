package controllers

import (
	"net/http"

	"github.com/supplyhub/marketplace-backend/internal/auth"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

// AuthLogin exchanges credentials for an access token. Token responses must
// not be cached by intermediaries.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return failing(logg, unavailable("auth"))
	}
	login := jsonEndpoint(logg, http.StatusOK, func(r *http.Request, body auth.LoginRequest) (any, error) {
		return svc.Login(r.Context(), body)
	})
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		login(w, r)
	}
}

// AuthRegister creates a customer or shop account.
func AuthRegister(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	if reg == nil {
		return failing(logg, unavailable("register"))
	}
	return jsonEndpoint(logg, http.StatusCreated, func(r *http.Request, body auth.RegisterRequest) (any, error) {
		user, err := reg.Register(r.Context(), body)
		if err != nil {
			return nil, err
		}
		return map[string]any{"user": user}, nil
	})
}
