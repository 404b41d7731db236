package controllers

import (
	"net/http"

	"github.com/supplyhub/marketplace-backend/api/responses"
	"github.com/supplyhub/marketplace-backend/api/validators"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

func unavailable(service string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable")
}

// jsonEndpoint decodes and validates a Req body, then writes whatever call
// returns with the given success status.
func jsonEndpoint[Req any](logg *logger.Logger, status int, call func(r *http.Request, body Req) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body Req
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out, err := call(r, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, out)
	}
}

func failing(logg *logger.Logger, err error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, err)
	}
}
