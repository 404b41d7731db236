package models

// Category ids come from supplier documents, so they are not autoincremented.
type Category struct {
	ID   int64  `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name string `gorm:"column:name;type:text;not null"`
}

// ShopCategory is the shop_categories join row.
type ShopCategory struct {
	ShopID     int64 `gorm:"column:shop_id;primaryKey"`
	CategoryID int64 `gorm:"column:category_id;primaryKey"`
}

func (ShopCategory) TableName() string { return "shop_categories" }
