package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// Order is the unit of state-machine transition and of dispatch claim.
//
// All money fields are fixed at checkout and never recomputed afterwards; the
// tariff table may change after the order is placed, so dispatch and
// settlement always read these frozen values. CourierID is the dispatch
// ownership token: once set it is never reassigned for the life of the order.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'unpaid'"`
	ShippingStatus  enums.ShippingStatus `gorm:"column:shipping_status;type:text;not null;default:'pending'"`
	MarketID        uuid.UUID            `gorm:"column:market_id;type:uuid;not null"`
	CustomerID      uuid.UUID            `gorm:"column:customer_id;type:uuid;not null"`
	CourierID       *uuid.UUID           `gorm:"column:courier_id;type:uuid"`
	ShippingMethod  enums.ShippingMethod `gorm:"column:shipping_method;type:text;not null"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	DistrictName    string               `gorm:"column:district_name;not null"`
	Address         *string              `gorm:"column:address"` // nil means pickup at stall
	PickupCode      *string              `gorm:"column:pickup_code"`
	PickupExpiredAt *time.Time           `gorm:"column:pickup_expired_at"`

	TotalPrice          int64 `gorm:"column:total_price;not null"`
	ShippingCost        int64 `gorm:"column:shipping_cost;not null;default:0"`
	ServiceFee          int64 `gorm:"column:service_fee;not null;default:0"`
	SystemFee           int64 `gorm:"column:system_fee;not null;default:0"`
	CourierEarningTotal int64 `gorm:"column:courier_earning_total;not null;default:0"`
	CashbackAmount      int64 `gorm:"column:cashback_amount;not null;default:0"`
	UsedBalance         int64 `gorm:"column:used_balance;not null;default:0"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CompletedAt *time.Time `gorm:"column:completed_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSelfPickup reports whether the buyer collects the order at the stall.
func (o *Order) IsSelfPickup() bool {
	return o.ShippingMethod == enums.ShippingMethodPickup
}

// Subtotal returns the product portion of the order total, excluding the
// shipping cost and service fee but before any balance was applied.
func (o *Order) Subtotal() int64 {
	return o.TotalPrice + o.UsedBalance - o.ShippingCost - o.ServiceFee
}
