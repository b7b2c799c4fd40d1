package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Kind        enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Message     string                 `gorm:"column:message;not null"`
	OrderID     *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	MarketID    *uuid.UUID             `gorm:"column:market_id;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}
