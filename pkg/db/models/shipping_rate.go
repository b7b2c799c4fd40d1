package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingRate holds the per-district tariff parameters used to derive
// delivery fares at checkout. Read-only from the fulfillment core; mutated by
// the admin tooling.
type ShippingRate struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DistrictName        string    `gorm:"column:district_name;uniqueIndex;not null"`
	BaseFare            int64     `gorm:"column:base_fare;not null"`
	BaseDistanceKm      float64   `gorm:"column:base_distance_km;not null"`
	PricePerKm          int64     `gorm:"column:price_per_km;not null"`
	MultiStopFee        int64     `gorm:"column:multi_stop_fee;not null;default:0"`
	SurgeFee            int64     `gorm:"column:surge_fee;not null;default:0"`
	AppFeePercent       float64   `gorm:"column:app_fee_percent;not null;default:0"`
	BuyerServiceFee     int64     `gorm:"column:buyer_service_fee;not null;default:0"`
	SellerAdminFeePct   float64   `gorm:"column:seller_admin_fee_percent;not null;default:0"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
