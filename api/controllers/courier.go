package controllers

import (
	"net/http"

	"github.com/aryasetiadi/lokapasar-backend/api/responses"
	"github.com/aryasetiadi/lokapasar-backend/api/validators"
	"github.com/aryasetiadi/lokapasar-backend/internal/couriers"
	"github.com/aryasetiadi/lokapasar-backend/internal/dispatch"
	"github.com/aryasetiadi/lokapasar-backend/internal/orders"
	"github.com/aryasetiadi/lokapasar-backend/pkg/enums"
	pkgerrors "github.com/aryasetiadi/lokapasar-backend/pkg/errors"
	"github.com/aryasetiadi/lokapasar-backend/pkg/logger"
)

// CourierRadar lists claimable orders in the courier's market.
func CourierRadar(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.Radar(r.Context(), viewer.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderListResponse(rows, viewer))
	}
}

// CourierClaim races for ownership of a ready order. At most one courier wins.
func CourierClaim(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dispatch service unavailable"))
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
		order, err := svc.Claim(r.Context(), dispatch.ClaimInput{
			OrderID:       orderID,
			CourierUserID: viewer.UserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order, viewer))
	}
}

// CourierStartDelivery marks the parcel as picked up from the stall.
func CourierStartDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, enums.OrderStatusShipping, false)
}

// CourierDeliver marks the parcel as handed to the customer, settling payouts.
func CourierDeliver(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, enums.OrderStatusCompleted, false)
}

type courierRegisterRequest struct {
	MarketID string `json:"market_id" validate:"required,uuid4"`
}

// CourierRegister creates the courier profile for the calling user.
func CourierRegister(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload courierRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		marketID, err := parseUUIDField(payload.MarketID, "market_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Register(r.Context(), couriers.RegisterInput{
			UserID:   viewer.UserID,
			MarketID: marketID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

type heartbeatRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CourierHeartbeat refreshes position and presence for the calling courier.
func CourierHeartbeat(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload heartbeatRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Heartbeat(r.Context(), couriers.HeartbeatInput{
			CourierUserID: viewer.UserID,
			Latitude:      payload.Latitude,
			Longitude:     payload.Longitude,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// CourierSetActive toggles whether the courier appears on the radar rotation.
func CourierSetActive(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload setActiveRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.SetActive(r.Context(), viewer.UserID, payload.Active)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// CourierProfile returns the caller's courier profile.
func CourierProfile(svc couriers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "courier service unavailable"))
			return
		}
		viewer, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.ProfileByUser(r.Context(), viewer.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}
