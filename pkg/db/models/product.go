package models

import "time"

// Product is the shop-independent identity of a good: (name, category).
type Product struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name       string    `gorm:"column:name;type:text;not null"`
	CategoryID int64     `gorm:"column:category_id;not null"`
	Category   *Category `gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// ProductInfo is one shop's listing of a product. Unique per (product, shop).
type ProductInfo struct {
	ID         int64              `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalID int64              `gorm:"column:external_id;not null"`
	Model      string             `gorm:"column:model;type:text;not null;default:''"`
	Name       string             `gorm:"column:name;type:text;not null;default:''"`
	Quantity   int                `gorm:"column:quantity;not null"`
	Price      int64              `gorm:"column:price;not null"`
	PriceRRC   int64              `gorm:"column:price_rrc;not null"`
	ProductID  int64              `gorm:"column:product_id;not null"`
	Product    *Product           `gorm:"foreignKey:ProductID"`
	ShopID     int64              `gorm:"column:shop_id;not null"`
	Shop       *Shop              `gorm:"foreignKey:ShopID"`
	Parameters []ProductParameter `gorm:"foreignKey:ProductInfoID"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

func (ProductInfo) TableName() string { return "product_infos" }

// Parameter is the global attribute dictionary ("color", "memory", ...).
type Parameter struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name;type:text;not null;uniqueIndex"`
}

// ProductParameter carries a listing's value for one parameter.
type ProductParameter struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	ProductInfoID int64      `gorm:"column:product_info_id;not null"`
	ParameterID   int64      `gorm:"column:parameter_id;not null"`
	Parameter     *Parameter `gorm:"foreignKey:ParameterID"`
	Value         string     `gorm:"column:value;type:text;not null"`
}
