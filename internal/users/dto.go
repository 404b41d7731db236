package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	MiddleName  string         `json:"middle_name"`
	LastName    string         `json:"last_name"`
	Company     string         `json:"company"`
	Position    string         `json:"position"`
	Type        enums.UserType `json:"type"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	MiddleName   string
	LastName     string
	Company      string
	Position     string
	Type         enums.UserType
	IsActive     *bool
}

// ProfilePatch lists the profile fields a user may change on themselves.
// Email, password and type are not editable here.
type ProfilePatch struct {
	FirstName  *string `json:"first_name,omitempty"`
	MiddleName *string `json:"middle_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	Company    *string `json:"company,omitempty"`
	Position   *string `json:"position,omitempty"`
}

func (p ProfilePatch) updates() map[string]any {
	out := map[string]any{}
	set := func(column string, value *string) {
		if value != nil {
			out[column] = strings.TrimSpace(*value)
		}
	}
	set("first_name", p.FirstName)
	set("middle_name", p.MiddleName)
	set("last_name", p.LastName)
	set("company", p.Company)
	set("position", p.Position)
	return out
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		MiddleName:  u.MiddleName,
		LastName:    u.LastName,
		Company:     u.Company,
		Position:    u.Position,
		Type:        u.Type,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}
	userType := c.Type
	if userType == "" {
		userType = enums.UserTypeCustomer
	}

	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		FirstName:    c.FirstName,
		MiddleName:   c.MiddleName,
		LastName:     c.LastName,
		Company:      c.Company,
		Position:     c.Position,
		Type:         userType,
		IsActive:     isActive,
	}
}
