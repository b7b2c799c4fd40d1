package enums

import "fmt"

// ShippingMethod distinguishes courier delivery from buyer self-pickup.
type ShippingMethod string

const (
	ShippingMethodCourier ShippingMethod = "courier"
	ShippingMethodPickup  ShippingMethod = "pickup"
)

var validShippingMethods = []ShippingMethod{
	ShippingMethodCourier,
	ShippingMethodPickup,
}

// String implements fmt.Stringer.
func (m ShippingMethod) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingMethod.
func (m ShippingMethod) IsValid() bool {
	for _, candidate := range validShippingMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingMethod converts raw input into a ShippingMethod.
func ParseShippingMethod(value string) (ShippingMethod, error) {
	for _, candidate := range validShippingMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping method %q", value)
}
