package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// OrderCreatedEvent signals a new checkout was accepted.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID            `json:"order_id"`
	MarketID       uuid.UUID            `json:"market_id"`
	CustomerID     uuid.UUID            `json:"customer_id"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	TotalPrice     int64                `json:"total_price"`
}

// OrderStateChangedEvent is emitted on every status transition.
type OrderStateChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	MarketID   uuid.UUID         `json:"market_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
	ActorRole  enums.ActorRole   `json:"actor_role"`
}

// OrderReadyEvent announces a courier order on the radar.
type OrderReadyEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	MarketID     uuid.UUID `json:"market_id"`
	DistrictName string    `json:"district_name"`
	CourierFee   int64     `json:"courier_fee"`
}

// OrderClaimedEvent reports the courier who won the claim race.
type OrderClaimedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	MarketID  uuid.UUID `json:"market_id"`
	CourierID uuid.UUID `json:"courier_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// OrderCancelledEvent is emitted whenever an order is cancelled from a
// non-terminal state.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	MarketID    uuid.UUID         `json:"market_id"`
	FromStatus  enums.OrderStatus `json:"from_status"`
	CancelledAt time.Time         `json:"cancelled_at"`
	Reason      string            `json:"reason,omitempty"`
}

// OrderCompletedEvent surfaces the settlement amounts applied on completion.
type OrderCompletedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	MarketID       uuid.UUID `json:"market_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	MerchantPayout int64     `json:"merchant_payout"`
	CourierPayout  int64     `json:"courier_payout"`
	Cashback       int64     `json:"cashback"`
	CompletedAt    time.Time `json:"completed_at"`
}

// PickupExpiredEvent reports a self-pickup order that outlived its window.
type PickupExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	MarketID  uuid.UUID `json:"market_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// WalletMovementEvent covers both credit and debit ledger appends.
type WalletMovementEvent struct {
	UserID       uuid.UUID           `json:"user_id"`
	Type         enums.WalletLogType `json:"type"`
	Amount       int64               `json:"amount"`
	BalanceAfter int64               `json:"balance_after"`
	OrderID      *uuid.UUID          `json:"order_id,omitempty"`
}

// WithdrawalRequestedEvent is emitted when a payout request debits the wallet.
type WithdrawalRequestedEvent struct {
	WithdrawalID uuid.UUID `json:"withdrawal_id"`
	UserID       uuid.UUID `json:"user_id"`
	Amount       int64     `json:"amount"`
}

// WithdrawalResolvedEvent reports an admin decision on a payout request.
type WithdrawalResolvedEvent struct {
	WithdrawalID uuid.UUID              `json:"withdrawal_id"`
	UserID       uuid.UUID              `json:"user_id"`
	Amount       int64                  `json:"amount"`
	Status       enums.WithdrawalStatus `json:"status"`
	ResolvedBy   uuid.UUID              `json:"resolved_by"`
}
