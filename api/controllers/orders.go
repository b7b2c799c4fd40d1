package controllers

import (
	"net/http"
	"strings"

	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	"github.com/aryasetiadi/lokapasar-backend/api/validators"
	"github.com/aryasetiadi/lokapasar-backend/internal/orders"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

// ListOrders returns the caller's orders: customers see their own history,
// merchants see their market's queue.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch viewer.Role {
		case enums.ActorRoleCustomer:
			rows, err := svc.ListCustomerOrders(r.Context(), viewer.UserID, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newOrderListResponse(rows, viewer))
		case enums.ActorRoleMerchant:
			if viewer.MarketID == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "market context missing"))
				return
			}
			status := enums.OrderStatus(strings.TrimSpace(r.URL.Query().Get("status")))
			if status != "" && !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter"))
				return
			}
			rows, err := svc.ListMarketOrders(r.Context(), *viewer.MarketID, status, params)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, newOrderListResponse(rows, viewer))
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot list orders here"))
		}
	}
}

// OrderDetail returns one order if the caller may see it.
func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !canViewOrder(order, viewer) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, viewer))
	}
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func transitionHandler(svc orders.Service, logg *logger.Logger, target enums.OrderStatus, withReason bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := orders.TransitionInput{
			OrderID:   orderID,
			ActorID:   viewer.UserID,
			ActorRole: viewer.Role,
			Target:    target,
		}
		if withReason && r.ContentLength > 0 {
			var payload cancelRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Reason = strings.TrimSpace(payload.Reason)
		}

		order, err := svc.Transition(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, viewer))
	}
}

// PackOrder moves a paid order into packing.
func PackOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, enums.OrderStatusPacking, false)
}

// ReadyOrder marks a packed order ready for pickup or dispatch.
func ReadyOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, enums.OrderStatusReadyToPickup, false)
}

// CancelOrder cancels a non-terminal order and refunds any applied balance.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, enums.OrderStatusCancelled, true)
}

// ConfirmPayment moves an unpaid order into processing once payment settles.
// Routed to operators only; the transition is recorded as system-driven since
// the payment edge belongs to the gateway, not to any user role.
func ConfirmPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Transition(r.Context(), orders.TransitionInput{
			OrderID:   orderID,
			ActorID:   viewer.UserID,
			ActorRole: enums.ActorRoleSystem,
			Target:    enums.OrderStatusProcessing,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, viewer))
	}
}

type verifyPickupRequest struct {
	Code string `json:"code" validate:"required"`
}

// VerifyPickup completes a self-pickup order when the presented code matches.
func VerifyPickup(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if viewer.Role != enums.ActorRoleMerchant {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "merchant role required"))
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload verifyPickupRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.VerifyPickup(r.Context(), orders.VerifyPickupInput{
			OrderID:    orderID,
			MerchantID: viewer.UserID,
			Code:       strings.TrimSpace(payload.Code),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, viewer))
	}
}
