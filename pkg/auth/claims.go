package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// AccessTokenPayload is what the login flow knows when it mints a token.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	UserType enums.UserType
	JTI      string
}

// AccessTokenClaims is the JWT body handed to clients. The subject mirrors
// user_id for tooling that only reads registered claims.
type AccessTokenClaims struct {
	UserID   uuid.UUID      `json:"user_id"`
	UserType enums.UserType `json:"user_type"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks during parsing.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token carries no user")
	}
	if !c.UserType.IsValid() {
		return errors.New("token carries an unknown user type")
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user")
	}
	return nil
}
