package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// WalletLog is one append-only entry in the balance ledger. Amount is always
// positive; the sign is implied by the type. BalanceAfter snapshots the
// cached balance right after this entry was applied.
type WalletLog struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Type         enums.WalletLogType `gorm:"column:type;type:text;not null"`
	Amount       int64               `gorm:"column:amount;not null"`
	BalanceAfter int64               `gorm:"column:balance_after;not null"`
	Description  string              `gorm:"column:description;not null"`
	OrderID      *uuid.UUID          `gorm:"column:order_id;type:uuid"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// SignedAmount returns the delta this entry applies to the balance.
func (l WalletLog) SignedAmount() int64 {
	if l.Type.IsDebit() {
		return -l.Amount
	}
	return l.Amount
}
