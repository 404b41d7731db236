package contacts

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/supplyhub/marketplace-backend/pkg/errors"
)

// Service manages the caller's delivery contacts. Every operation is owner scoped.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]ContactDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input ContactInput) (*ContactDTO, error)
	Update(ctx context.Context, userID uuid.UUID, contactID int64, patch ContactPatch) (*ContactDTO, error)
	Delete(ctx context.Context, userID uuid.UUID, contactID int64) error
}

type service struct {
	repo *Repository
}

// NewService builds a contacts service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("contacts repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ContactDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list contacts")
	}
	out := make([]ContactDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input ContactInput) (*ContactDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	contact := models.Contact{
		UserID:   userID,
		Phone:    strings.TrimSpace(input.Phone),
		Country:  strings.TrimSpace(input.Country),
		City:     strings.TrimSpace(input.City),
		Street:   strings.TrimSpace(input.Street),
		Building: strings.TrimSpace(input.Building),
	}
	if contact.Phone == "" || contact.City == "" || contact.Street == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone, city and street are required")
	}
	if err := s.repo.Create(ctx, &contact); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create contact")
	}
	dto := FromModel(contact)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID uuid.UUID, contactID int64, patch ContactPatch) (*ContactDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	updates := patch.updates()
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}
	affected, err := s.repo.UpdateOwned(ctx, userID, contactID, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update contact")
	}
	if affected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	contact, err := s.repo.FindOwned(ctx, userID, contactID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load contact")
	}
	dto := FromModel(*contact)
	return &dto, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, contactID int64) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	affected, err := s.repo.DeleteOwned(ctx, userID, contactID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete contact")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "contact not found")
	}
	return nil
}
