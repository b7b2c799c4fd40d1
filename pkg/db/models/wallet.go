package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet caches the current balance for one user. The wallet_logs table is
// the source of truth; this row is a projection kept in sync inside the same
// transaction as every ledger append, and repairable by replaying the log.
type Wallet struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	Balance   int64     `gorm:"column:balance;not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
