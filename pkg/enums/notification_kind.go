package enums

import "fmt"

// NotificationKind labels the in-app notifications fanned out from domain
// events.
type NotificationKind string

const (
	NotificationKindNewOrder       NotificationKind = "new_order"
	NotificationKindOrderReady     NotificationKind = "order_ready"
	NotificationKindOrderClaimed   NotificationKind = "order_claimed"
	NotificationKindOrderTaken     NotificationKind = "order_taken"
	NotificationKindOrderCancelled NotificationKind = "order_cancelled"
	NotificationKindOrderCompleted NotificationKind = "order_completed"
	NotificationKindCashback       NotificationKind = "cashback"
	NotificationKindWithdrawal     NotificationKind = "withdrawal"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindNewOrder,
	NotificationKindOrderReady,
	NotificationKindOrderClaimed,
	NotificationKindOrderTaken,
	NotificationKindOrderCancelled,
	NotificationKindOrderCompleted,
	NotificationKindCashback,
	NotificationKindWithdrawal,
}

// IsValid reports whether the value is a known NotificationKind.
func (k NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
