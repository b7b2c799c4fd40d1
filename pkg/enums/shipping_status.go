package enums

import "fmt"

// ShippingStatus is the logistics-facing view of an order. It is a projection
// computed from OrderStatus plus the shipping method, never written on its own.
type ShippingStatus string

const (
	ShippingStatusPending       ShippingStatus = "pending"
	ShippingStatusConfirmed     ShippingStatus = "confirmed"
	ShippingStatusReady         ShippingStatus = "ready"
	ShippingStatusCourierOnWay  ShippingStatus = "courier_on_way"
	ShippingStatusDelivering    ShippingStatus = "delivering"
	ShippingStatusDelivered     ShippingStatus = "delivered"
	ShippingStatusPickupWaiting ShippingStatus = "pickup_waiting"
	ShippingStatusPickedUp      ShippingStatus = "picked_up"
	ShippingStatusCancelled     ShippingStatus = "cancelled"
)

var validShippingStatuses = []ShippingStatus{
	ShippingStatusPending,
	ShippingStatusConfirmed,
	ShippingStatusReady,
	ShippingStatusCourierOnWay,
	ShippingStatusDelivering,
	ShippingStatusDelivered,
	ShippingStatusPickupWaiting,
	ShippingStatusPickedUp,
	ShippingStatusCancelled,
}

// String implements fmt.Stringer.
func (s ShippingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShippingStatus.
func (s ShippingStatus) IsValid() bool {
	for _, candidate := range validShippingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShippingStatus converts raw input into a ShippingStatus.
func ParseShippingStatus(value string) (ShippingStatus, error) {
	for _, candidate := range validShippingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping status %q", value)
}
