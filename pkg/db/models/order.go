package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// Order doubles as the user's basket while Status is basket.
type Order struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null"`
	Status    enums.OrderStatus `gorm:"column:status;type:text;not null"`
	ContactID *int64            `gorm:"column:contact_id"`
	Contact   *Contact          `gorm:"foreignKey:ContactID"`
	Items     []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is unique per (order, listing). Name, Model and Price are copied
// from the listing when the item is added; ProductInfoID goes NULL once a
// catalog import replaces the listing, and the copy then describes the line.
type OrderItem struct {
	ID            int64        `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID       int64        `gorm:"column:order_id;not null"`
	ProductInfoID *int64       `gorm:"column:product_info_id"`
	ProductInfo   *ProductInfo `gorm:"foreignKey:ProductInfoID"`
	ShopID        int64        `gorm:"column:shop_id;not null"`
	Quantity      int          `gorm:"column:quantity;not null"`
	Name          string       `gorm:"column:name;type:text;not null;default:''"`
	Model         string       `gorm:"column:model;type:text;not null;default:''"`
	Price         int64        `gorm:"column:price;not null;default:0"`
	CreatedAt     time.Time    `gorm:"column:created_at;autoCreateTime"`
}

// Contact is a delivery address owned by a user.
type Contact struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	Phone     string    `gorm:"column:phone;type:text;not null;default:''"`
	Country   string    `gorm:"column:country;type:text;not null;default:''"`
	City      string    `gorm:"column:city;type:text;not null;default:''"`
	Street    string    `gorm:"column:street;type:text;not null;default:''"`
	Building  string    `gorm:"column:building;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
