package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder      OutboxAggregateType = "order"
	AggregateWallet     OutboxAggregateType = "wallet"
	AggregateWithdrawal OutboxAggregateType = "withdrawal"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateWallet,
	AggregateWithdrawal,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventOrderReady          OutboxEventType = "order_ready"
	EventOrderClaimed        OutboxEventType = "order_claimed"
	EventOrderCancelled      OutboxEventType = "order_cancelled"
	EventOrderCompleted      OutboxEventType = "order_completed"
	EventPickupExpired       OutboxEventType = "pickup_expired"
	EventWalletCredited      OutboxEventType = "wallet_credited"
	EventWalletDebited       OutboxEventType = "wallet_debited"
	EventWithdrawalRequested OutboxEventType = "withdrawal_requested"
	EventWithdrawalResolved  OutboxEventType = "withdrawal_resolved"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStateChanged,
	EventOrderReady,
	EventOrderClaimed,
	EventOrderCancelled,
	EventOrderCompleted,
	EventPickupExpired,
	EventWalletCredited,
	EventWalletDebited,
	EventWithdrawalRequested,
	EventWithdrawalResolved,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
