package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// Principal is the authenticated caller as established by Auth.
type Principal struct {
	UserID   uuid.UUID
	UserType enums.UserType
	// TokenID is the jti of the access token the request presented.
	TokenID string
}

type principalKey struct{}

// WithPrincipal stores p on ctx, replacing any earlier principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// CurrentPrincipal returns the caller and whether one was authenticated.
func CurrentPrincipal(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// PrincipalFromContext returns the authenticated user id, or uuid.Nil for
// anonymous requests.
func PrincipalFromContext(ctx context.Context) uuid.UUID {
	p, _ := CurrentPrincipal(ctx)
	return p.UserID
}

// UserTypeFromContext returns the caller's account type, or "" when anonymous.
func UserTypeFromContext(ctx context.Context) enums.UserType {
	p, _ := CurrentPrincipal(ctx)
	return p.UserType
}
