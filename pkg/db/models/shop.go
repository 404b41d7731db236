package models

import (
	"time"

	"github.com/google/uuid"
)

// Shop is a supplier storefront. Name is the upsert identity used by the catalog importer.
type Shop struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement"`
	Name            string     `gorm:"column:name;type:text;not null;uniqueIndex"`
	URL             *string    `gorm:"column:url;type:text"`
	UserID          *uuid.UUID `gorm:"column:user_id;type:uuid"`
	AcceptingOrders bool       `gorm:"column:accepting_orders;not null;default:true"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// ManagedBy reports whether the shop is bound to the given user.
func (s Shop) ManagedBy(userID uuid.UUID) bool {
	return s.UserID != nil && *s.UserID == userID
}
