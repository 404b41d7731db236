package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"gorm.io/gorm"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	FirstName    string         `gorm:"column:first_name;not null"`
	MiddleName   string         `gorm:"column:middle_name;not null;default:''"`
	LastName     string         `gorm:"column:last_name;not null"`
	Company      string         `gorm:"column:company;not null;default:''"`
	Position     string         `gorm:"column:position;not null;default:''"`
	Type         enums.UserType `gorm:"column:type;type:text;not null;default:customer"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id so sqlite and postgres behave the same.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
