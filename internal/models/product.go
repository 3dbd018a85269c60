package models

import "time"

const (
	ShippingStatusInStock = "in_stock"
	ShippingStatusSold    = "sold"
	ShippingStatusShipped = "shipped"
)

type Product struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Type        string `gorm:"type:varchar(50);index"`
	ImageURL    string `gorm:"type:varchar(500)"`

	ShippingStatus string `gorm:"type:varchar(20);not null;default:'in_stock'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Product) TableName() string {
	return "products"
}
