package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryasetiadi/lokapasar-backend/pkg/db/models"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
)

func courierOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		Status:         status,
		ShippingMethod: enums.ShippingMethodCourier,
	}
}

func pickupOrder(status enums.OrderStatus) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		Status:         status,
		ShippingMethod: enums.ShippingMethodPickup,
	}
}

func TestCanTransitionHappyPath(t *testing.T) {
	path := []enums.OrderStatus{
		enums.OrderStatusUnpaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusPacking,
		enums.OrderStatusReadyToPickup,
		enums.OrderStatusPickingUp,
		enums.OrderStatusShipping,
		enums.OrderStatusCompleted,
	}
	for i := 0; i < len(path)-1; i++ {
		assert.True(t, CanTransition(path[i], path[i+1]), "%s -> %s", path[i], path[i+1])
	}
}

func TestCanTransitionRejectsSkipsAndBackwards(t *testing.T) {
	assert.False(t, CanTransition(enums.OrderStatusUnpaid, enums.OrderStatusPacking))
	assert.False(t, CanTransition(enums.OrderStatusProcessing, enums.OrderStatusShipping))
	assert.False(t, CanTransition(enums.OrderStatusShipping, enums.OrderStatusPacking))
	assert.False(t, CanTransition(enums.OrderStatusCompleted, enums.OrderStatusCancelled))
	assert.False(t, CanTransition(enums.OrderStatusCancelled, enums.OrderStatusProcessing))
}

func TestCanTransitionCancelFromNonTerminal(t *testing.T) {
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusUnpaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusPacking,
		enums.OrderStatusReadyToPickup,
		enums.OrderStatusPickingUp,
		enums.OrderStatusShipping,
	} {
		assert.True(t, CanTransition(from, enums.OrderStatusCancelled), "cancel from %s", from)
	}
}

func TestRoleAllowed(t *testing.T) {
	assert.True(t, RoleAllowed(enums.OrderStatusProcessing, enums.OrderStatusPacking, enums.ActorRoleMerchant))
	assert.False(t, RoleAllowed(enums.OrderStatusProcessing, enums.OrderStatusPacking, enums.ActorRoleCustomer))

	assert.True(t, RoleAllowed(enums.OrderStatusShipping, enums.OrderStatusCompleted, enums.ActorRoleCourier))
	assert.False(t, RoleAllowed(enums.OrderStatusShipping, enums.OrderStatusCompleted, enums.ActorRoleCustomer))
	assert.False(t, RoleAllowed(enums.OrderStatusShipping, enums.OrderStatusCompleted, enums.ActorRoleMerchant))

	// late cancellations are operator-only
	assert.True(t, RoleAllowed(enums.OrderStatusShipping, enums.OrderStatusCancelled, enums.ActorRoleAdmin))
	assert.False(t, RoleAllowed(enums.OrderStatusShipping, enums.OrderStatusCancelled, enums.ActorRoleCustomer))
}

func TestGuardTransitionTerminalState(t *testing.T) {
	err := GuardTransition(courierOrder(enums.OrderStatusCompleted), enums.ActorRoleAdmin, enums.OrderStatusCancelled)
	require.NotNil(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, err.Code())
}

func TestGuardTransitionPickupBranch(t *testing.T) {
	// the stall hand-off only exists for self-pickup orders
	err := GuardTransition(courierOrder(enums.OrderStatusReadyToPickup), enums.ActorRoleMerchant, enums.OrderStatusCompleted)
	require.NotNil(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, err.Code())

	assert.Nil(t, GuardTransition(pickupOrder(enums.OrderStatusReadyToPickup), enums.ActorRoleMerchant, enums.OrderStatusCompleted))

	// and pickup orders never enter the dispatch flow
	err = GuardTransition(pickupOrder(enums.OrderStatusReadyToPickup), enums.ActorRoleCourier, enums.OrderStatusPickingUp)
	require.NotNil(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, err.Code())
}

func TestGuardTransitionClaimedOrderCancel(t *testing.T) {
	courierID := uuid.New()
	order := courierOrder(enums.OrderStatusPickingUp)
	order.CourierID = &courierID

	err := GuardTransition(order, enums.ActorRoleCustomer, enums.OrderStatusCancelled)
	require.NotNil(t, err)

	assert.Nil(t, GuardTransition(order, enums.ActorRoleAdmin, enums.OrderStatusCancelled))
}

func TestGuardTransitionRoleForbidden(t *testing.T) {
	err := GuardTransition(courierOrder(enums.OrderStatusPacking), enums.ActorRoleCourier, enums.OrderStatusReadyToPickup)
	require.NotNil(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, err.Code())
}

func TestDeriveShippingStatus(t *testing.T) {
	cases := []struct {
		status enums.OrderStatus
		method enums.ShippingMethod
		want   enums.ShippingStatus
	}{
		{enums.OrderStatusUnpaid, enums.ShippingMethodCourier, enums.ShippingStatusPending},
		{enums.OrderStatusProcessing, enums.ShippingMethodCourier, enums.ShippingStatusConfirmed},
		{enums.OrderStatusPacking, enums.ShippingMethodPickup, enums.ShippingStatusConfirmed},
		{enums.OrderStatusReadyToPickup, enums.ShippingMethodCourier, enums.ShippingStatusReady},
		{enums.OrderStatusReadyToPickup, enums.ShippingMethodPickup, enums.ShippingStatusPickupWaiting},
		{enums.OrderStatusPickingUp, enums.ShippingMethodCourier, enums.ShippingStatusCourierOnWay},
		{enums.OrderStatusShipping, enums.ShippingMethodCourier, enums.ShippingStatusDelivering},
		{enums.OrderStatusCompleted, enums.ShippingMethodCourier, enums.ShippingStatusDelivered},
		{enums.OrderStatusCompleted, enums.ShippingMethodPickup, enums.ShippingStatusPickedUp},
		{enums.OrderStatusCancelled, enums.ShippingMethodCourier, enums.ShippingStatusCancelled},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DeriveShippingStatus(tc.status, tc.method), "%s/%s", tc.status, tc.method)
	}
}
