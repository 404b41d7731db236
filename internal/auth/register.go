package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/supplyhub/marketplace-backend/internal/users"
	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
	"github.com/supplyhub/marketplace-backend/pkg/security"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterService handles the sign-up transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB             txRunner
	Outbox         outboxPublisher
	PasswordConfig config.PasswordConfig
}

type registerService struct {
	db     txRunner
	outbox outboxPublisher
	hasher security.Hasher
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &registerService{
		db:     params.DB,
		outbox: params.Outbox,
		hasher: security.NewHasher(params.PasswordConfig),
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	userType, err := enums.ParseUserType(string(req.Type))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid user type").
			WithDetails(map[string]string{"type": "must be customer or shop"})
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		user, err := users.NewRepository(tx).Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    strings.TrimSpace(req.FirstName),
			MiddleName:   strings.TrimSpace(req.MiddleName),
			LastName:     strings.TrimSpace(req.LastName),
			Company:      strings.TrimSpace(req.Company),
			Position:     strings.TrimSpace(req.Position),
			Type:         userType,
		})
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		case err != nil:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventUserRegistered,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID.String(),
			Actor:         &outbox.ActorRef{UserID: user.ID, UserType: user.Type},
			Data: payloads.UserRegisteredEvent{
				UserID:    user.ID,
				Email:     user.Email,
				FirstName: user.FirstName,
				Type:      user.Type,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit user registered")
		}

		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
