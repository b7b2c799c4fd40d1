package models

import (
	"time"

	"github.com/google/uuid"
)

// CourierProfile carries the dispatch eligibility state for one courier.
// Position fields are refreshed by the heartbeat endpoint while the courier
// is online; IsVerified is flipped by admin review.
type CourierProfile struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	MarketID   uuid.UUID  `gorm:"column:market_id;type:uuid;not null"`
	IsActive   bool       `gorm:"column:is_active;not null;default:false"`
	IsVerified bool       `gorm:"column:is_verified;not null;default:false"`
	Latitude   float64    `gorm:"column:latitude;not null;default:0"`
	Longitude  float64    `gorm:"column:longitude;not null;default:0"`
	LastSeenAt *time.Time `gorm:"column:last_seen_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Eligible reports whether the courier may see or claim dispatch orders for
// the given market.
func (c *CourierProfile) Eligible(marketID uuid.UUID) bool {
	return c.IsActive && c.IsVerified && c.MarketID == marketID
}
