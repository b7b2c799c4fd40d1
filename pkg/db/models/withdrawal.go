package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// Withdrawal is a payout request. The wallet is debited optimistically when
// the request is created; a rejection must credit the exact amount back.
type Withdrawal struct {
	ID            uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Amount        int64                  `gorm:"column:amount;not null"`
	Status        enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	BankName      string                 `gorm:"column:bank_name;not null"`
	AccountNumber string                 `gorm:"column:account_number;not null"`
	AccountName   string                 `gorm:"column:account_name;not null"`
	ResolvedBy    *uuid.UUID             `gorm:"column:resolved_by;type:uuid"`
	ResolvedAt    *time.Time             `gorm:"column:resolved_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
