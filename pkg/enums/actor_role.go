package enums

import "fmt"

// ActorRole identifies which kind of actor performs an operation. Transition
// permissions on the order state machine are keyed by role.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleMerchant ActorRole = "merchant"
	ActorRoleCourier  ActorRole = "courier"
	ActorRoleAdmin    ActorRole = "admin"
	// ActorRoleSystem marks transitions driven by internal workers.
	ActorRoleSystem ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleMerchant,
	ActorRoleCourier,
	ActorRoleAdmin,
	ActorRoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
