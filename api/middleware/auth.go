package middleware

import (
	"net/http"
	"strings"

	"github.com/supplyhub/marketplace-backend/api/responses"
	pkgAuth "github.com/supplyhub/marketplace-backend/pkg/auth"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
)

// Auth requires "Authorization: Bearer <jwt>" and stores the token's user
// and account type on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, r, logg, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				unauthorized(w, r, logg, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				UserID:   claims.UserID,
				UserType: claims.UserType,
				TokenID:  claims.ID,
			})
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":   claims.UserID.String(),
					"user_type": string(claims.UserType),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUserType admits only principals of the given account type, e.g.
// shop managers on the partner routes.
func RequireUserType(userType enums.UserType, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserTypeFromContext(r.Context()) != userType {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only "+string(userType)+" accounts may use this endpoint"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, logg *logger.Logger, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="marketplace"`)
	responses.WriteError(r.Context(), logg, w, err)
}
