package enums

import "fmt"

// OrderStatus tracks the buyer-facing lifecycle of an order. It is the single
// authority for fulfillment state; ShippingStatus is derived from it.
type OrderStatus string

const (
	OrderStatusUnpaid        OrderStatus = "unpaid"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusPacking       OrderStatus = "packing"
	OrderStatusReadyToPickup OrderStatus = "ready_to_pickup"
	OrderStatusPickingUp     OrderStatus = "picking_up"
	OrderStatusShipping      OrderStatus = "shipping"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusUnpaid,
	OrderStatusProcessing,
	OrderStatusPacking,
	OrderStatusReadyToPickup,
	OrderStatusPickingUp,
	OrderStatusShipping,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed from s.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
