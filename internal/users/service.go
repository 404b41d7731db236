package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, updates map[string]any) (int64, error)
}

// Service serves the authenticated user's own profile.
type Service interface {
	Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateMe(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*UserDTO, error)
}

type service struct {
	repo profileRepository
}

func NewService(repo profileRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Me(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return FromModel(user), nil
}

func (s *service) UpdateMe(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*UserDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	updates := patch.updates()
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no profile fields provided")
	}
	for _, column := range []string{"first_name", "last_name"} {
		if value, ok := updates[column]; ok && strings.TrimSpace(value.(string)) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid profile").
				WithDetails(map[string]string{column: "must not be blank"})
		}
	}

	affected, err := s.repo.UpdateProfile(ctx, userID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return s.Me(ctx, userID)
}
