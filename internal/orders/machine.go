package orders

import (
	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
)

type edge struct {
	from enums.OrderStatus
	to   enums.OrderStatus
}

// transitionRoles is the single authority for "whose turn it is". An edge
// absent from this map is illegal regardless of actor.
var transitionRoles = map[edge][]enums.ActorRole{
	{enums.OrderStatusUnpaid, enums.OrderStatusProcessing}: {
		enums.ActorRoleSystem,
	},
	{enums.OrderStatusProcessing, enums.OrderStatusPacking}: {
		enums.ActorRoleMerchant,
	},
	{enums.OrderStatusPacking, enums.OrderStatusReadyToPickup}: {
		enums.ActorRoleMerchant,
	},
	// Claim edge. Owned by the dispatch engine; the courier role is recorded
	// here so the guard table stays complete.
	{enums.OrderStatusReadyToPickup, enums.OrderStatusPickingUp}: {
		enums.ActorRoleCourier,
	},
	{enums.OrderStatusPickingUp, enums.OrderStatusShipping}: {
		enums.ActorRoleCourier,
	},
	// Delivery confirmation belongs to the courier who carried it.
	{enums.OrderStatusShipping, enums.OrderStatusCompleted}: {
		enums.ActorRoleCourier,
	},
	// Pickup branch: PIN-verified hand-off at the stall completes directly.
	{enums.OrderStatusReadyToPickup, enums.OrderStatusCompleted}: {
		enums.ActorRoleMerchant,
	},

	{enums.OrderStatusUnpaid, enums.OrderStatusCancelled}: {
		enums.ActorRoleCustomer, enums.ActorRoleMerchant, enums.ActorRoleSystem, enums.ActorRoleAdmin,
	},
	{enums.OrderStatusProcessing, enums.OrderStatusCancelled}: {
		enums.ActorRoleCustomer, enums.ActorRoleMerchant, enums.ActorRoleAdmin,
	},
	{enums.OrderStatusPacking, enums.OrderStatusCancelled}: {
		enums.ActorRoleCustomer, enums.ActorRoleMerchant, enums.ActorRoleAdmin,
	},
	{enums.OrderStatusReadyToPickup, enums.OrderStatusCancelled}: {
		enums.ActorRoleCustomer, enums.ActorRoleMerchant, enums.ActorRoleAdmin,
	},
	{enums.OrderStatusPickingUp, enums.OrderStatusCancelled}: {
		enums.ActorRoleAdmin,
	},
	{enums.OrderStatusShipping, enums.OrderStatusCancelled}: {
		enums.ActorRoleAdmin,
	},
}

// CanTransition reports whether the edge exists in the transition graph.
func CanTransition(from, to enums.OrderStatus) bool {
	_, ok := transitionRoles[edge{from, to}]
	return ok
}

// RoleAllowed reports whether the actor role owns the given edge.
func RoleAllowed(from, to enums.OrderStatus, role enums.ActorRole) bool {
	roles, ok := transitionRoles[edge{from, to}]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// GuardTransition validates a requested transition against the loaded order.
// It layers the order-shape guards (pickup branch, claimed-order
// cancellation) on top of the static edge table. The caller still needs a
// compare-and-set on the current status; this guard only rejects what is
// already visibly illegal on the snapshot it was given.
func GuardTransition(order *models.Order, role enums.ActorRole, target enums.OrderStatus) *pkgerrors.Error {
	if order.Status.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already in terminal state")
	}
	if !CanTransition(order.Status, target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed from current state")
	}
	if !RoleAllowed(order.Status, target, role) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "actor role does not own this transition")
	}

	// Direct ready->completed is the pickup hand-off; courier orders must go
	// through picking_up/shipping.
	if order.Status == enums.OrderStatusReadyToPickup && target == enums.OrderStatusCompleted && !order.IsSelfPickup() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "courier orders cannot complete at the stall")
	}
	if target == enums.OrderStatusPickingUp && order.IsSelfPickup() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "self-pickup orders are not dispatched")
	}

	// Once a courier owns the order only an operator may cancel.
	if target == enums.OrderStatusCancelled && order.CourierID != nil && role != enums.ActorRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already claimed by a courier")
	}

	return nil
}

// DeriveShippingStatus projects the logistics-facing status from the order
// status and shipping method. shipping_status is never written
// independently; it always tracks this mapping.
func DeriveShippingStatus(status enums.OrderStatus, method enums.ShippingMethod) enums.ShippingStatus {
	switch status {
	case enums.OrderStatusUnpaid:
		return enums.ShippingStatusPending
	case enums.OrderStatusProcessing, enums.OrderStatusPacking:
		return enums.ShippingStatusConfirmed
	case enums.OrderStatusReadyToPickup:
		if method == enums.ShippingMethodPickup {
			return enums.ShippingStatusPickupWaiting
		}
		return enums.ShippingStatusReady
	case enums.OrderStatusPickingUp:
		return enums.ShippingStatusCourierOnWay
	case enums.OrderStatusShipping:
		return enums.ShippingStatusDelivering
	case enums.OrderStatusCompleted:
		if method == enums.ShippingMethodPickup {
			return enums.ShippingStatusPickedUp
		}
		return enums.ShippingStatusDelivered
	case enums.OrderStatusCancelled:
		return enums.ShippingStatusCancelled
	}
	return enums.ShippingStatusPending
}
