package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one product line inside an order. PriceAtPurchase is
// immutable even when the catalog price later changes.
type OrderItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	MerchantID      uuid.UUID `gorm:"column:merchant_id;type:uuid;not null"`
	ProductID       uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName     string    `gorm:"column:product_name;not null"`
	Quantity        int       `gorm:"column:quantity;not null"`
	PriceAtPurchase int64     `gorm:"column:price_at_purchase;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Subtotal returns quantity times the frozen unit price.
func (i OrderItem) Subtotal() int64 {
	return int64(i.Quantity) * i.PriceAtPurchase
}
