package orders

import (
	"github.com/google/uuid"

	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
)

// TransitionInput captures a requested state-machine transition.
type TransitionInput struct {
	OrderID   uuid.UUID
	ActorID   uuid.UUID
	ActorRole enums.ActorRole
	Target    enums.OrderStatus
	Reason    string
}

// VerifyPickupInput carries the PIN hand-off attempt for a self-pickup order.
type VerifyPickupInput struct {
	OrderID    uuid.UUID
	MerchantID uuid.UUID
	Code       string
}
